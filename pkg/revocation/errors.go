package revocation

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidItem indicates a malformed revocation item.
	ErrInvalidItem = errors.New("invalid revocation item")

	// ErrUnexpectedStatus indicates a non-2xx HTTP response.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrEvidenceTooLarge indicates a response body over the size cap.
	ErrEvidenceTooLarge = errors.New("revocation evidence too large")
)

// FetchError describes why a single item could not be fetched.
// It never escapes Collect; it is carried in Outcome for logging and tests.
type FetchError struct {
	Kind Kind
	URL  string
	Err  error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch %s: %v", e.Kind, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error { return e.Err }

func statusError(code int) error {
	return fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, code)
}
