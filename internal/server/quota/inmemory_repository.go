package quota

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/mailseal/internal/common"
	"github.com/dmitrijs2005/mailseal/internal/server/models"
)

// InMemoryRepository keeps the ledger in a mutex-guarded map. Used by tests
// and by the server's in-memory mode.
type InMemoryRepository struct {
	mu           sync.Mutex
	used         map[string]int64
	defaultLimit int64
}

func NewInMemoryRepository(defaultLimit int64) *InMemoryRepository {
	return &InMemoryRepository{used: make(map[string]int64), defaultLimit: defaultLimit}
}

func (r *InMemoryRepository) Reserve(ctx context.Context, ownerID string, bytes int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.used[ownerID]+bytes > r.defaultLimit {
		return common.ErrQuotaExceeded
	}
	r.used[ownerID] += bytes
	return nil
}

func (r *InMemoryRepository) Release(ctx context.Context, ownerID string, bytes int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.used[ownerID] - bytes
	if next < 0 {
		next = 0
	}
	r.used[ownerID] = next
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, ownerID string) (*models.Quota, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return &models.Quota{
		OwnerID:    ownerID,
		UsedBytes:  r.used[ownerID],
		LimitBytes: r.defaultLimit,
	}, nil
}
