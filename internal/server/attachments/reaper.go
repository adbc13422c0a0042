package attachments

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mailseal/internal/logging"
	"github.com/dmitrijs2005/mailseal/internal/server/quota"
)

const (
	// DefaultReapInterval is how often the sweep runs.
	DefaultReapInterval = time.Hour
	// DefaultRetention is how long a never-completed upload may linger
	// before it is destroyed.
	DefaultRetention = 24 * time.Hour
)

// Reaper periodically destroys abandoned, never-completed uploads and
// returns their quota reservations. It acts with system authority, not on
// behalf of a requester. Completed attachments are never reaped regardless
// of age.
type Reaper struct {
	repo      Repository
	quota     *quota.Service
	logger    logging.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// ReaperOption customizes a Reaper.
type ReaperOption func(*Reaper)

// WithClock injects a time source so tests can age uploads without
// sleeping.
func WithClock(now func() time.Time) ReaperOption {
	return func(r *Reaper) { r.now = now }
}

func NewReaper(repo Repository, quota *quota.Service, logger logging.Logger, interval, retention time.Duration, opts ...ReaperOption) *Reaper {
	r := &Reaper{
		repo:      repo,
		quota:     quota,
		logger:    logger.With("module", "reaper"),
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run sweeps on a fixed interval until the context is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info(ctx, "reaper started", "interval", r.interval.String(), "retention", r.retention.String())

	for {
		select {
		case <-ctx.Done():
			r.logger.Info(ctx, "reaper stopped")
			return
		case <-ticker.C:
			if _, err := r.ReapOnce(ctx); err != nil {
				r.logger.Error(ctx, "reap sweep failed", "error", err)
			}
		}
	}
}

// ReapOnce performs a single sweep and returns how many uploads it
// destroyed. Each candidate's status is re-checked under the row lock, so a
// complete call racing the sweep wins.
func (r *Reaper) ReapOnce(ctx context.Context) (int, error) {

	cutoff := r.now().Add(-r.retention)

	candidates, err := r.repo.ListAbandoned(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	reapedCount := 0
	for _, a := range candidates {
		reaped, released, err := r.repo.ReapIfAbandoned(ctx, a.ID, cutoff)
		if err != nil {
			r.logger.Error(ctx, "reap failed", "attachment", a.ID, "error", err)
			continue
		}
		if !reaped {
			continue // completed or deleted since listing
		}
		if released {
			if err := r.quota.Release(ctx, a.OwnerID, a.TotalSize); err != nil {
				r.logger.Error(ctx, "quota release failed", "attachment", a.ID, "error", err)
			}
		}
		reapedCount++
		r.logger.Info(ctx, "abandoned upload reaped", "attachment", a.ID, "owner", a.OwnerID, "age", r.now().Sub(a.CreatedAt).String())
	}

	return reapedCount, nil
}
