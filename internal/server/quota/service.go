// Package quota implements the per-owner storage ledger. Usage is charged
// once when an upload is initialized and released once when the attachment
// is deleted or reaped; accounting is O(1) per attachment lifecycle and is
// never incremented per chunk.
package quota

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/mailseal/internal/common"
	"github.com/dmitrijs2005/mailseal/internal/logging"
	"github.com/dmitrijs2005/mailseal/internal/server/models"
)

type Service struct {
	repo   Repository
	logger logging.Logger
}

func NewService(repo Repository, logger logging.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With("module", "quota"),
	}
}

// Reserve charges bytes against the owner before any data exists
// (optimistic reserve-at-init).
func (s *Service) Reserve(ctx context.Context, ownerID string, bytes int64) error {
	if bytes <= 0 {
		return fmt.Errorf("%w: reservation must be positive", common.ErrValidation)
	}
	if err := s.repo.Reserve(ctx, ownerID, bytes); err != nil {
		return err
	}
	s.logger.Debug(ctx, "quota reserved", "owner", ownerID, "bytes", bytes)
	return nil
}

// Release returns a reservation to the owner; usage floors at zero, so a
// double release is harmless.
func (s *Service) Release(ctx context.Context, ownerID string, bytes int64) error {
	if bytes < 0 {
		return fmt.Errorf("%w: release must not be negative", common.ErrValidation)
	}
	if err := s.repo.Release(ctx, ownerID, bytes); err != nil {
		return err
	}
	s.logger.Debug(ctx, "quota released", "owner", ownerID, "bytes", bytes)
	return nil
}

func (s *Service) Usage(ctx context.Context, ownerID string) (*models.Quota, error) {
	return s.repo.Get(ctx, ownerID)
}
