package dto

// VerifyRequest represents a verification request.
type VerifyRequest struct {
	Path string `json:"path"`
}

// VerifyResponse carries the engine report verbatim. Report is null when
// the engine produced none.
type VerifyResponse struct {
	Report *string `json:"report"`
}
