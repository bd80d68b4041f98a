package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/remiblancher/signpdfkit/internal/api/dto"
	apierrors "github.com/remiblancher/signpdfkit/internal/api/errors"
	"github.com/remiblancher/signpdfkit/internal/audit"
	"github.com/remiblancher/signpdfkit/pkg/revocation"
	"github.com/remiblancher/signpdfkit/pkg/signpdf"
)

// SignService runs sign and verify requests against the shared engine.
type SignService struct {
	cfg      Config
	verifier *signpdf.Verifier
	logger   *zap.Logger
}

// NewSignService creates a new SignService.
func NewSignService(cfg Config) *SignService {
	logger := cfg.logger().Named("sign")
	if cfg.Collector == nil {
		cfg.Collector = revocation.NewCollector(revocation.DefaultConfig(), revocation.WithLogger(cfg.logger()))
	}
	return &SignService{
		cfg:      cfg,
		verifier: signpdf.NewVerifier(cfg.Engine, logger),
		logger:   logger,
	}
}

// Sign runs one sign attempt. Workflow failures are reported in the
// response code, not as an error; errors are reserved for audit failures.
// The attempt ID is taken from ctx when present.
func (s *SignService) Sign(ctx context.Context, in *dto.SignRequest, actor *audit.Actor) (*dto.SignResponse, error) {
	attemptID := signpdf.AttemptID(ctx)
	ctx = signpdf.ContextWithAttemptID(ctx, attemptID)

	var res signpdf.SignResult
	req, err := in.ToSignRequest()
	if err != nil {
		s.logger.Info("rejected sign request", zap.String("attempt_id", attemptID), zap.Error(err))
		res = signpdf.SignResult{
			ResponseCode:   int(signpdf.CodeInvalidInput),
			ResponseStatus: signpdf.CodeInvalidInput.Status(),
		}
		if s.cfg.Recorder != nil {
			s.cfg.Recorder.ObserveSign(res.ResponseCode, 0)
		}
	} else {
		res = s.workflow(in.Options).Sign(ctx, req)
	}

	rec := audit.SignRecord{
		Actor:        actor,
		Input:        in.InputPath,
		Output:       in.OutputPath,
		AttemptID:    attemptID,
		Signer:       s.cfg.SignerName,
		ResponseCode: res.ResponseCode,
		Status:       res.ResponseStatus,
	}
	if req != nil {
		rec.SignatureType = req.SignatureType.String()
		rec.Subfilter = req.Subfilter.String()
		rec.Visibility = req.Visibility.String()
		rec.DSS = req.DSS == signpdf.DSSYes
	}
	if err := audit.LogPDFSigned(rec); err != nil {
		return nil, fmt.Errorf("%w: %v", apierrors.ErrAudit, err)
	}

	return &dto.SignResponse{
		ResponseCode:   res.ResponseCode,
		ResponseStatus: res.ResponseStatus,
		AttemptID:      attemptID,
	}, nil
}

// workflow builds a Workflow whose signer options are the configured
// baseline overlaid with the request's.
func (s *SignService) workflow(extra map[string]string) *signpdf.Workflow {
	opts := s.cfg.Options.Clone()
	for k, v := range extra {
		opts[k] = v
	}
	return signpdf.New(s.cfg.Engine, s.cfg.Signer,
		signpdf.WithOptions(opts),
		signpdf.WithCollector(s.cfg.Collector),
		signpdf.WithLogger(s.cfg.logger()),
		signpdf.WithRecorder(s.cfg.Recorder),
	)
}

// Verify returns the engine report for a PDF path.
func (s *SignService) Verify(ctx context.Context, in *dto.VerifyRequest, actor *audit.Actor) (*dto.VerifyResponse, error) {
	if in.Path == "" {
		return nil, fmt.Errorf("%w: path is required", signpdf.ErrInvalidInput)
	}

	report, ok, err := s.verifier.Verify(ctx, in.Path)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", in.Path, err)
	}
	if err := audit.LogPDFVerified(actor, in.Path, signpdf.AttemptID(ctx), ok); err != nil {
		return nil, fmt.Errorf("%w: %v", apierrors.ErrAudit, err)
	}

	resp := &dto.VerifyResponse{}
	if ok {
		resp.Report = &report
	}
	return resp, nil
}
