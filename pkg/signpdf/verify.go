package signpdf

import (
	"context"

	"go.uber.org/zap"
)

// Verifier forwards verification to the engine.
type Verifier struct {
	engine Engine
	logger *zap.Logger
}

// NewVerifier creates a Verifier. A nil logger disables logging.
func NewVerifier(engine Engine, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{engine: engine, logger: logger}
}

// Verify returns the engine's report for path. An empty report is
// reported as absent (ok == false), not as an error.
func (v *Verifier) Verify(ctx context.Context, path string) (report string, ok bool, err error) {
	report, err = v.engine.Verify(ctx, path)
	if err != nil {
		return "", false, err
	}
	if report == "" {
		v.logger.Debug("empty verification report", zap.String("path", path))
		return "", false, nil
	}
	return report, true, nil
}
