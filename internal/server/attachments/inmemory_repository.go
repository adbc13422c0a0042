package attachments

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/mailseal/internal/common"
	"github.com/dmitrijs2005/mailseal/internal/server/models"
)

// InMemoryRepository holds everything in mutex-guarded maps. The single
// mutex gives the same per-attachment serialization the Postgres
// implementation gets from row locks. Used by tests and dev mode.
type InMemoryRepository struct {
	mu          sync.Mutex
	attachments map[string]*models.Attachment
	chunks      map[string]map[int]*models.Chunk
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		attachments: make(map[string]*models.Attachment),
		chunks:      make(map[string]map[int]*models.Chunk),
	}
}

func copyAttachment(a *models.Attachment) *models.Attachment {
	c := *a
	return &c
}

func (r *InMemoryRepository) Create(ctx context.Context, a *models.Attachment) (*models.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.attachments[a.ID]; ok {
		return nil, fmt.Errorf("attachment %s already exists", a.ID)
	}
	r.attachments[a.ID] = copyAttachment(a)
	r.chunks[a.ID] = make(map[int]*models.Chunk)
	return a, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*models.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.attachments[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return copyAttachment(a), nil
}

func (r *InMemoryRepository) InsertChunk(ctx context.Context, c *models.Chunk) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.attachments[c.AttachmentID]
	if !ok || a.Deleted {
		return false, common.ErrNotFound
	}
	if a.Status == models.StatusCompleted {
		return false, common.ErrAlreadyCompleted
	}
	if c.ChunkIndex < 0 || c.ChunkIndex >= a.TotalChunks {
		return false, fmt.Errorf("%w: chunk index %d out of range [0,%d)", common.ErrValidation, c.ChunkIndex, a.TotalChunks)
	}

	if _, exists := r.chunks[c.AttachmentID][c.ChunkIndex]; exists {
		return false, nil // duplicate index, silent success
	}

	stored := *c
	r.chunks[c.AttachmentID][c.ChunkIndex] = &stored

	if a.Status == models.StatusInit {
		a.Status = models.StatusUploading
	}
	return true, nil
}

func (r *InMemoryRepository) UploadedIndices(ctx context.Context, id string) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	indices := []int{}
	for i := range r.chunks[id] {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices, nil
}

func (r *InMemoryRepository) Complete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.attachments[id]
	if !ok || a.Deleted {
		return common.ErrNotFound
	}
	if a.Status == models.StatusCompleted {
		return nil // idempotent
	}
	if count := len(r.chunks[id]); count != a.TotalChunks {
		return fmt.Errorf("%w: %d of %d chunks uploaded", common.ErrIncompleteUpload, count, a.TotalChunks)
	}
	a.Status = models.StatusCompleted
	return nil
}

func (r *InMemoryRepository) GetChunk(ctx context.Context, id string, index int) (*models.Chunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.chunks[id][index]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.attachments[id]
	if !ok {
		return false, common.ErrNotFound
	}
	if a.Deleted {
		return false, nil // idempotent
	}

	released := a.QuotaReserved
	a.Deleted = true
	a.QuotaReserved = false
	r.chunks[id] = make(map[int]*models.Chunk)
	return released, nil
}

func (r *InMemoryRepository) ListAbandoned(ctx context.Context, cutoff time.Time) ([]*models.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.Attachment
	for _, a := range r.attachments {
		if !a.Deleted && a.Status != models.StatusCompleted && a.CreatedAt.Before(cutoff) {
			result = append(result, copyAttachment(a))
		}
	}
	return result, nil
}

func (r *InMemoryRepository) ReapIfAbandoned(ctx context.Context, id string, cutoff time.Time) (bool, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.attachments[id]
	if !ok {
		return false, false, nil
	}
	if a.Deleted || a.Status == models.StatusCompleted || !a.CreatedAt.Before(cutoff) {
		return false, false, nil
	}

	released := a.QuotaReserved
	a.Deleted = true
	a.QuotaReserved = false
	r.chunks[id] = make(map[int]*models.Chunk)
	return true, released, nil
}
