package quota

import (
	"context"

	"github.com/dmitrijs2005/mailseal/internal/server/models"
)

type Repository interface {
	// Reserve atomically adds bytes to the owner's usage, creating the
	// ledger row on first use. Fails with common.ErrQuotaExceeded when the
	// owner's limit would be crossed; usage is unchanged in that case.
	Reserve(ctx context.Context, ownerID string, bytes int64) error

	// Release subtracts bytes from the owner's usage, flooring at zero.
	// Releasing for an unknown owner is a no-op.
	Release(ctx context.Context, ownerID string, bytes int64) error

	// Get returns the owner's ledger state. Owners without a row get a
	// zero-usage state with the default limit.
	Get(ctx context.Context, ownerID string) (*models.Quota, error)
}
