// Package attachments owns the attachment upload lifecycle: the
// Init -> Uploading -> Completed state machine, per-chunk persistence, and
// the background reaping of abandoned uploads. All content handled here is
// ciphertext produced by the client-side envelope; the server never holds a
// usable key.
package attachments

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mailseal/internal/common"
	"github.com/dmitrijs2005/mailseal/internal/envelope"
	"github.com/dmitrijs2005/mailseal/internal/logging"
	"github.com/dmitrijs2005/mailseal/internal/server/access"
	"github.com/dmitrijs2005/mailseal/internal/server/models"
	"github.com/dmitrijs2005/mailseal/internal/server/quota"
	"github.com/google/uuid"
)

// maxChunkCiphertext caps a single chunk payload: the 5 MiB plaintext
// chunk plus room for the AEAD tag.
const maxChunkCiphertext = envelope.ChunkSize + 256

// InitParams is everything the client supplies at initUpload. The envelope
// fields are optional; the server stores them opaquely.
type InitParams struct {
	TotalSize              int64
	TotalChunks            int
	MimeType               string
	EncryptedFilename      []byte
	FilenameIV             []byte
	WrappedKeyOwner        []byte
	WrappedKeyCounterparty []byte
}

// UploadStatus is the resume view: the client uploads only the missing
// indices.
type UploadStatus struct {
	Status          models.AttachmentStatus
	TotalChunks     int
	UploadedIndices []int
}

type Service struct {
	repo   Repository
	quota  *quota.Service
	guard  *access.Guard
	logger logging.Logger
	now    func() time.Time
}

func NewService(repo Repository, quota *quota.Service, guard *access.Guard, logger logging.Logger) *Service {
	return &Service{
		repo:   repo,
		quota:  quota,
		guard:  guard,
		logger: logger.With("module", "attachments"),
		now:    time.Now,
	}
}

// InitUpload validates the declared size, reserves quota for it before any
// bytes exist, and creates the Init record.
func (s *Service) InitUpload(ctx context.Context, ownerID string, p InitParams) (*models.Attachment, error) {

	if ownerID == "" {
		return nil, fmt.Errorf("%w: missing owner", common.ErrValidation)
	}
	if p.TotalSize < 1 || p.TotalSize > models.MaxAttachmentSize {
		return nil, fmt.Errorf("%w: total size %d outside [1,%d]", common.ErrValidation, p.TotalSize, models.MaxAttachmentSize)
	}
	if p.TotalChunks < 0 {
		return nil, fmt.Errorf("%w: negative chunk count", common.ErrValidation)
	}
	// A non-empty chunked payload must declare enough chunks to hold the
	// declared size at the fixed chunk size.
	if p.TotalChunks > 0 && int64(p.TotalChunks)*envelope.ChunkSize < p.TotalSize {
		return nil, fmt.Errorf("%w: %d chunks cannot hold %d bytes", common.ErrValidation, p.TotalChunks, p.TotalSize)
	}

	if err := s.quota.Reserve(ctx, ownerID, p.TotalSize); err != nil {
		return nil, err
	}

	a := &models.Attachment{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Status:      models.StatusInit,
		TotalSize:   p.TotalSize,
		TotalChunks: p.TotalChunks,

		EncryptedFilename:      p.EncryptedFilename,
		FilenameIV:             p.FilenameIV,
		WrappedKeyOwner:        p.WrappedKeyOwner,
		WrappedKeyCounterparty: p.WrappedKeyCounterparty,
		MimeType:               p.MimeType,

		QuotaReserved: true,
		CreatedAt:     s.now(),
	}

	if _, err := s.repo.Create(ctx, a); err != nil {
		// Roll the optimistic reservation back; the record never existed.
		if rerr := s.quota.Release(ctx, ownerID, p.TotalSize); rerr != nil {
			s.logger.Error(ctx, "quota rollback failed", "owner", ownerID, "error", rerr)
		}
		return nil, fmt.Errorf("error creating attachment: %w", err)
	}

	s.logger.Info(ctx, "upload initialized", "attachment", a.ID, "owner", ownerID,
		"size", p.TotalSize, "chunks", p.TotalChunks)
	return a, nil
}

// getOwned loads the record and enforces owner-only access. Deleted records
// read as not found.
func (s *Service) getOwned(ctx context.Context, requesterID, id string) (*models.Attachment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Deleted {
		return nil, common.ErrNotFound
	}
	if !s.guard.IsOwner(a, requesterID) {
		return nil, common.ErrForbidden
	}
	return a, nil
}

// UploadChunk stores one ciphertext chunk. Re-uploading an existing index
// is a silent success; the stored chunk is never overwritten.
func (s *Service) UploadChunk(ctx context.Context, requesterID, id string, index int, ciphertext, iv []byte, size int64) error {

	if _, err := s.getOwned(ctx, requesterID, id); err != nil {
		return err
	}

	if len(ciphertext) == 0 || len(iv) == 0 {
		return fmt.Errorf("%w: empty ciphertext or iv", common.ErrValidation)
	}
	if len(iv) < envelope.NonceSize {
		return fmt.Errorf("%w: iv shorter than %d bytes", common.ErrValidation, envelope.NonceSize)
	}
	if len(ciphertext) > maxChunkCiphertext {
		return fmt.Errorf("%w: chunk ciphertext exceeds %d bytes", common.ErrValidation, maxChunkCiphertext)
	}
	if size != int64(len(ciphertext)) {
		return fmt.Errorf("%w: declared size %d does not match payload %d", common.ErrValidation, size, len(ciphertext))
	}

	stored, err := s.repo.InsertChunk(ctx, &models.Chunk{
		ID:           uuid.New().String(),
		AttachmentID: id,
		ChunkIndex:   index,
		Ciphertext:   ciphertext,
		IV:           iv,
		Size:         size,
	})
	if err != nil {
		return err
	}

	if stored {
		s.logger.Debug(ctx, "chunk stored", "attachment", id, "index", index, "size", size)
	} else {
		s.logger.Debug(ctx, "duplicate chunk ignored", "attachment", id, "index", index)
	}
	return nil
}

// GetStatus returns the owner's resume view.
func (s *Service) GetStatus(ctx context.Context, requesterID, id string) (*UploadStatus, error) {

	a, err := s.getOwned(ctx, requesterID, id)
	if err != nil {
		return nil, err
	}

	indices, err := s.repo.UploadedIndices(ctx, id)
	if err != nil {
		return nil, err
	}

	return &UploadStatus{
		Status:          a.Status,
		TotalChunks:     a.TotalChunks,
		UploadedIndices: indices,
	}, nil
}

// CompleteUpload flips the attachment to Completed once every declared
// chunk is present.
func (s *Service) CompleteUpload(ctx context.Context, requesterID, id string) error {

	if _, err := s.getOwned(ctx, requesterID, id); err != nil {
		return err
	}

	if err := s.repo.Complete(ctx, id); err != nil {
		return err
	}

	s.logger.Info(ctx, "upload completed", "attachment", id)
	return nil
}

// getReadable loads the record for a metadata/chunk read, applying the
// access guard (owner or message-linked counterparty).
func (s *Service) getReadable(ctx context.Context, requesterID, id string) (*models.Attachment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Deleted {
		return nil, common.ErrNotFound
	}
	if err := s.guard.CanRead(ctx, a, requesterID); err != nil {
		return nil, err
	}
	return a, nil
}

// GetMetadata returns the record without touching chunk payload storage.
func (s *Service) GetMetadata(ctx context.Context, requesterID, id string) (*models.Attachment, error) {
	return s.getReadable(ctx, requesterID, id)
}

func (s *Service) GetChunk(ctx context.Context, requesterID, id string, index int) (*models.Chunk, error) {

	if _, err := s.getReadable(ctx, requesterID, id); err != nil {
		return nil, err
	}
	return s.repo.GetChunk(ctx, id, index)
}

// DeleteAttachment destroys chunks, releases the reservation, and marks the
// record deleted. Permitted from any non-deleted status; deleting twice is
// a success.
func (s *Service) DeleteAttachment(ctx context.Context, requesterID, id string) error {

	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.guard.IsOwner(a, requesterID) {
		return common.ErrForbidden
	}
	if a.Deleted {
		return nil // idempotent
	}

	released, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if released {
		if err := s.quota.Release(ctx, a.OwnerID, a.TotalSize); err != nil {
			s.logger.Error(ctx, "quota release failed", "attachment", id, "error", err)
		}
	}

	s.logger.Info(ctx, "attachment deleted", "attachment", id, "owner", a.OwnerID)
	return nil
}
