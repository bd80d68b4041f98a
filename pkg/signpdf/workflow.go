package signpdf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/remiblancher/signpdfkit/pkg/revocation"
)

// Workflow runs sign attempts. It holds only configuration captured at
// construction and is safe for concurrent use.
type Workflow struct {
	engine    Engine
	signer    ExternalSigner
	options   Options
	collector *revocation.Collector
	logger    *zap.Logger
	recorder  Recorder
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithOptions sets the options forwarded to the external signer.
func WithOptions(opts Options) Option {
	return func(w *Workflow) { w.options = opts.Clone() }
}

// WithCollector sets the revocation collector used for DSS requests.
func WithCollector(c *revocation.Collector) Option {
	return func(w *Workflow) { w.collector = c }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithRecorder registers a recorder for sign outcomes.
func WithRecorder(r Recorder) Option {
	return func(w *Workflow) { w.recorder = r }
}

// New creates a Workflow.
func New(engine Engine, signer ExternalSigner, opts ...Option) *Workflow {
	w := &Workflow{
		engine:  engine,
		signer:  signer,
		options: Options{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.collector == nil {
		w.collector = revocation.NewCollector(revocation.DefaultConfig(), revocation.WithLogger(w.logger))
	}
	return w
}

type attemptKey struct{}

// ContextWithAttemptID returns a context whose sign attempt is logged
// under id instead of a generated one.
func ContextWithAttemptID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, attemptKey{}, id)
}

// AttemptID returns the attempt ID carried by ctx, or a new random one.
func AttemptID(ctx context.Context) string {
	if id, ok := ctx.Value(attemptKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Sign runs one sign attempt. It never returns an error: every failure
// is encoded in the result.
func (w *Workflow) Sign(ctx context.Context, req *SignRequest) SignResult {
	res, _ := w.Run(ctx, req)
	return res
}

// Run is Sign but also returns the cause of a failed attempt as *Error.
func (w *Workflow) Run(ctx context.Context, req *SignRequest) (res SignResult, err error) {
	start := time.Now()
	logger := w.logger.With(zap.String("attempt_id", AttemptID(ctx)))

	defer func() {
		if r := recover(); r != nil {
			err = newError(PhaseSign, CodeProcessFailed, fmt.Errorf("panic: %v", r))
			res = result(CodeProcessFailed, CodeProcessFailed.Status())
		}
		if w.recorder != nil {
			w.recorder.ObserveSign(res.ResponseCode, time.Since(start))
		}
		if err != nil {
			logger.Warn("sign attempt failed",
				zap.Int("code", res.ResponseCode),
				zap.String("status", res.ResponseStatus),
				zap.Error(err),
			)
			return
		}
		logger.Info("document signed",
			zap.String("output", req.OutputPath),
			zap.Duration("elapsed", time.Since(start)),
		)
	}()

	return w.run(ctx, logger, req)
}

func (w *Workflow) run(ctx context.Context, logger *zap.Logger, req *SignRequest) (SignResult, error) {
	if err := req.Validate(); err != nil {
		return fail(PhaseValidate, CodeInvalidInput, CodeInvalidInput.Status(), err)
	}

	desc, err := w.engine.ComputeDigest(ctx, req)
	if err != nil {
		return fail(PhaseDigest, CodeProcessFailed, CodeProcessFailed.Status(), err)
	}
	if desc == nil {
		return fail(PhaseDigest, CodeProcessFailed, CodeProcessFailed.Status(), ErrEmptyDigest)
	}
	if desc.ResponseCode != 0 {
		code, status := StatusForNativeCode(desc.ResponseCode)
		return fail(PhaseDigest, code, status,
			fmt.Errorf("%w: native code %d: %s", ErrDigestFailed, desc.ResponseCode, desc.ResponseStatus))
	}
	if desc.Digest == "" {
		return fail(PhaseDigest, CodeProcessFailed, CodeProcessFailed.Status(), ErrEmptyDigest)
	}
	logger.Debug("digest computed", zap.String("input", req.InputPath))

	cms, err := w.signer.SignDigest(ctx, desc.Digest, w.options)
	if err == nil && cms == "" {
		err = ErrEmptySignature
	}
	if err != nil {
		status := fmt.Sprintf("%s: %v", CodeProcessFailed.Status(), err)
		return fail(PhaseSign, CodeProcessFailed, status, err)
	}

	var bundle *revocation.Bundle
	if req.DSS == DSSYes {
		bundle = w.collectRevocation(ctx, logger, cms)
	}

	exit, err := w.engine.Embed(ctx, desc, cms, bundle, req.OutputPath)
	if err != nil {
		return fail(PhaseEmbed, CodeProcessFailed, CodeProcessFailed.Status(), fmt.Errorf("%w: %w", ErrEmbedFailed, err))
	}
	if exit != 0 {
		code := CodeProcessFailed
		if exit > 0 {
			code = ResponseCode(exit)
		}
		return fail(PhaseEmbed, code, CodeProcessFailed.Status(), fmt.Errorf("%w: native code %d", ErrEmbedFailed, exit))
	}

	return result(CodeSuccess, CodeSuccess.Status()), nil
}

// collectRevocation never fails the attempt: any problem yields a nil
// bundle and the signature is embedded without evidence.
func (w *Workflow) collectRevocation(ctx context.Context, logger *zap.Logger, cms string) (bundle *revocation.Bundle) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("revocation collection aborted", zap.Any("panic", r))
			bundle = nil
		}
	}()

	items, err := w.engine.RevocationParameters(ctx, cms)
	if err != nil {
		logger.Warn("revocation parameters unavailable", zap.Error(err))
		return nil
	}
	if len(items) == 0 {
		logger.Debug("no revocation evidence requested")
		return nil
	}

	ocsp, crl := revocation.Count(items)
	bundle = w.collector.Collect(ctx, cms, items)
	logger.Info("revocation evidence collected",
		zap.Int("ocsp_requested", ocsp),
		zap.Int("ocsp_fetched", len(bundle.OCSP)),
		zap.Int("crl_requested", crl),
		zap.Int("crl_fetched", len(bundle.CRL)),
	)
	return bundle
}

func fail(phase Phase, code ResponseCode, status string, err error) (SignResult, error) {
	return result(code, status), newError(phase, code, err)
}

// IsPhase reports whether err is a sign failure in the given phase.
func IsPhase(err error, phase Phase) bool {
	var e *Error
	return errors.As(err, &e) && e.Phase == phase
}
