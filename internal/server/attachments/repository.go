package attachments

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mailseal/internal/server/models"
)

// Repository persists attachments and their chunks. Methods are shaped so
// the state-machine invariants hold inside a single transaction per
// attachment; concurrent calls for the same attachment serialize on the
// attachment row.
type Repository interface {
	Create(ctx context.Context, a *models.Attachment) (*models.Attachment, error)

	// Get returns the record including soft-deleted ones; callers decide
	// how to treat the Deleted flag.
	Get(ctx context.Context, id string) (*models.Attachment, error)

	// InsertChunk stores the chunk and flips Init->Uploading in the same
	// transaction. An already-present index is reported as stored=false
	// with a nil error (idempotent client retries). Uploads against a
	// Completed attachment fail with common.ErrAlreadyCompleted; an index
	// outside [0, TotalChunks) fails with common.ErrValidation.
	InsertChunk(ctx context.Context, c *models.Chunk) (stored bool, err error)

	// UploadedIndices returns the sorted chunk indices present for the
	// attachment.
	UploadedIndices(ctx context.Context, id string) ([]int, error)

	// Complete transitions to Completed when the stored chunk count equals
	// TotalChunks, reading the count in the same transaction as the
	// transition. Fails with common.ErrIncompleteUpload otherwise.
	// Completing an already-Completed attachment is a no-op.
	Complete(ctx context.Context, id string) error

	GetChunk(ctx context.Context, id string, index int) (*models.Chunk, error)

	// Delete removes all chunks and marks the record deleted, reporting
	// whether the quota reservation was still held. Deleting an
	// already-deleted record is a no-op with released=false.
	Delete(ctx context.Context, id string) (released bool, err error)

	// ListAbandoned returns non-deleted records that are not Completed and
	// were created before cutoff.
	ListAbandoned(ctx context.Context, cutoff time.Time) ([]*models.Attachment, error)

	// ReapIfAbandoned is Delete guarded by an in-transaction re-check that
	// the record is still not Completed and still older than cutoff, so a
	// concurrent Complete cannot lose data. reaped=false when the re-check
	// fails.
	ReapIfAbandoned(ctx context.Context, id string, cutoff time.Time) (reaped bool, released bool, err error)
}
