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

// RevocationService exposes the collector on its own, for diagnosing
// responders outside a sign attempt.
type RevocationService struct {
	collector *revocation.Collector
	logger    *zap.Logger
}

// NewRevocationService creates a new RevocationService.
func NewRevocationService(cfg Config) *RevocationService {
	c := cfg.Collector
	if c == nil {
		c = revocation.NewCollector(revocation.DefaultConfig(), revocation.WithLogger(cfg.logger()))
	}
	return &RevocationService{collector: c, logger: cfg.logger().Named("revocation")}
}

// Collect fetches every item and assembles the bundle the workflow would
// embed. Failed items are listed with their cause.
func (s *RevocationService) Collect(ctx context.Context, in *dto.RevocationCollectRequest, actor *audit.Actor) (*dto.RevocationCollectResponse, error) {
	for i, item := range in.Items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}

	outcomes := s.collector.Fetch(ctx, in.Items)
	bundle := s.collector.Assemble(in.CMS, outcomes)

	resp := &dto.RevocationCollectResponse{Bundle: bundle}
	for _, o := range outcomes {
		if o.OK() {
			continue
		}
		resp.Failed = append(resp.Failed, dto.FailedItem{
			Kind:  o.Item.Kind.String(),
			URL:   o.Item.URL,
			Error: o.Err.Error(),
		})
	}

	if err := audit.LogRevocationFetched(actor, signpdf.AttemptID(ctx), len(in.Items), len(bundle.OCSP), len(bundle.CRL)); err != nil {
		return nil, fmt.Errorf("%w: %v", apierrors.ErrAudit, err)
	}
	return resp, nil
}
