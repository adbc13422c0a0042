package attachments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mailseal/internal/common"
	"github.com/dmitrijs2005/mailseal/internal/dbx"
	"github.com/dmitrijs2005/mailseal/internal/server/chunkstore"
	"github.com/dmitrijs2005/mailseal/internal/server/models"
)

// PostgresRepository keeps attachment and chunk rows in Postgres. When a
// chunkstore.Store is supplied, chunk ciphertext goes there and the
// ciphertext column stays NULL; otherwise the bytes live in the row.
type PostgresRepository struct {
	db    *sql.DB
	store chunkstore.Store
}

func NewPostgresRepository(db *sql.DB, store chunkstore.Store) (*PostgresRepository, error) {
	return &PostgresRepository{db: db, store: store}, nil
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Attachment) (*models.Attachment, error) {

	query :=
		`INSERT INTO attachments
		   (id, owner_id, status, total_size, total_chunks,
		    encrypted_filename, filename_iv, wrapped_key_owner, wrapped_key_counterparty,
		    mime_type, quota_reserved, deleted, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.OwnerID, a.Status, a.TotalSize, a.TotalChunks,
		a.EncryptedFilename, a.FilenameIV, a.WrappedKeyOwner, a.WrappedKeyCounterparty,
		a.MimeType, a.QuotaReserved, a.Deleted, a.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return a, nil
}

const attachmentColumns = `id, owner_id, status, total_size, total_chunks,
	encrypted_filename, filename_iv, wrapped_key_owner, wrapped_key_counterparty,
	mime_type, quota_reserved, deleted, created_at`

func scanAttachment(row *sql.Row) (*models.Attachment, error) {
	a := &models.Attachment{}
	err := row.Scan(&a.ID, &a.OwnerID, &a.Status, &a.TotalSize, &a.TotalChunks,
		&a.EncryptedFilename, &a.FilenameIV, &a.WrappedKeyOwner, &a.WrappedKeyCounterparty,
		&a.MimeType, &a.QuotaReserved, &a.Deleted, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id = $1`
	return scanAttachment(r.db.QueryRowContext(ctx, query, id))
}

// lockRow reads status fields under FOR UPDATE so same-attachment operations
// serialize for the rest of the transaction.
func lockRow(ctx context.Context, tx dbx.DBTX, id string) (status models.AttachmentStatus, totalChunks int, quotaReserved, deleted bool, createdAt time.Time, err error) {
	err = tx.QueryRowContext(ctx,
		`SELECT status, total_chunks, quota_reserved, deleted, created_at
		 FROM attachments WHERE id = $1 FOR UPDATE`, id).
		Scan(&status, &totalChunks, &quotaReserved, &deleted, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = common.ErrNotFound
	}
	return
}

func (r *PostgresRepository) InsertChunk(ctx context.Context, c *models.Chunk) (bool, error) {

	stored := false

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {

		status, totalChunks, _, deleted, _, err := lockRow(ctx, tx, c.AttachmentID)
		if err != nil {
			return err
		}
		if deleted {
			return common.ErrNotFound
		}
		if status == models.StatusCompleted {
			return common.ErrAlreadyCompleted
		}
		if c.ChunkIndex < 0 || c.ChunkIndex >= totalChunks {
			return fmt.Errorf("%w: chunk index %d out of range [0,%d)", common.ErrValidation, c.ChunkIndex, totalChunks)
		}

		var ciphertext []byte
		if r.store == nil {
			ciphertext = c.Ciphertext
		}

		// The uniqueness constraint makes duplicate uploads a no-op
		// instead of an error or an overwrite.
		res, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, attachment_id, chunk_index, ciphertext, iv, size)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (attachment_id, chunk_index) DO NOTHING`,
			c.ID, c.AttachmentID, c.ChunkIndex, ciphertext, c.IV, c.Size)
		if err != nil {
			return fmt.Errorf("error performing sql request: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil // duplicate index, silent success
		}
		stored = true

		if status == models.StatusInit {
			if _, err := tx.ExecContext(ctx,
				`UPDATE attachments SET status = $2 WHERE id = $1`,
				c.AttachmentID, models.StatusUploading); err != nil {
				return fmt.Errorf("error performing sql request: %w", err)
			}
		}

		if r.store != nil {
			// Inside the transaction: a failed Put rolls the row back.
			if err := r.store.Put(ctx, c.AttachmentID, c.ChunkIndex, c.Ciphertext); err != nil {
				return err
			}
		}

		return nil
	})

	return stored, err
}

func (r *PostgresRepository) UploadedIndices(ctx context.Context, id string) ([]int, error) {

	rows, err := r.db.QueryContext(ctx,
		`SELECT chunk_index FROM chunks WHERE attachment_id = $1 ORDER BY chunk_index`, id)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	indices := []int{}
	for rows.Next() {
		var i int
		if err := rows.Scan(&i); err != nil {
			return nil, err
		}
		indices = append(indices, i)
	}
	return indices, rows.Err()
}

func (r *PostgresRepository) Complete(ctx context.Context, id string) error {

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {

		status, totalChunks, _, deleted, _, err := lockRow(ctx, tx, id)
		if err != nil {
			return err
		}
		if deleted {
			return common.ErrNotFound
		}
		if status == models.StatusCompleted {
			return nil // idempotent
		}

		// Count from the same snapshot that performs the transition, so an
		// in-flight chunk upload cannot race the check.
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM chunks WHERE attachment_id = $1`, id).Scan(&count); err != nil {
			return fmt.Errorf("error performing sql request: %w", err)
		}
		if count != totalChunks {
			return fmt.Errorf("%w: %d of %d chunks uploaded", common.ErrIncompleteUpload, count, totalChunks)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE attachments SET status = $2 WHERE id = $1`,
			id, models.StatusCompleted); err != nil {
			return fmt.Errorf("error performing sql request: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepository) GetChunk(ctx context.Context, id string, index int) (*models.Chunk, error) {

	c := &models.Chunk{}
	var ciphertext []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, attachment_id, chunk_index, ciphertext, iv, size
		 FROM chunks WHERE attachment_id = $1 AND chunk_index = $2`,
		id, index).
		Scan(&c.ID, &c.AttachmentID, &c.ChunkIndex, &ciphertext, &c.IV, &c.Size)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	if ciphertext == nil && r.store != nil {
		if ciphertext, err = r.store.Get(ctx, id, index); err != nil {
			return nil, err
		}
	}
	c.Ciphertext = ciphertext

	return c, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {

	released := false

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {

		_, _, quotaReserved, deleted, _, err := lockRow(ctx, tx, id)
		if err != nil {
			return err
		}
		if deleted {
			return nil // idempotent
		}

		if err := destroyRow(ctx, tx, id); err != nil {
			return err
		}
		released = quotaReserved
		return nil
	})
	if err != nil {
		return false, err
	}

	r.dropStoredChunks(ctx, id)
	return released, nil
}

func (r *PostgresRepository) ListAbandoned(ctx context.Context, cutoff time.Time) ([]*models.Attachment, error) {

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, status, total_size, quota_reserved, created_at
		 FROM attachments
		 WHERE NOT deleted AND status <> $1 AND created_at < $2`,
		models.StatusCompleted, cutoff)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var result []*models.Attachment
	for rows.Next() {
		a := &models.Attachment{}
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Status, &a.TotalSize, &a.QuotaReserved, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) ReapIfAbandoned(ctx context.Context, id string, cutoff time.Time) (bool, bool, error) {

	reaped, released := false, false

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {

		status, _, quotaReserved, deleted, createdAt, err := lockRow(ctx, tx, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil
			}
			return err
		}
		// Re-check under the row lock: a complete (or delete) that slipped
		// in between listing and reaping must win.
		if deleted || status == models.StatusCompleted || !createdAt.Before(cutoff) {
			return nil
		}

		if err := destroyRow(ctx, tx, id); err != nil {
			return err
		}
		reaped = true
		released = quotaReserved
		return nil
	})
	if err != nil {
		return false, false, err
	}

	if reaped {
		r.dropStoredChunks(ctx, id)
	}
	return reaped, released, nil
}

// destroyRow deletes the chunk rows and soft-deletes the attachment,
// clearing the quota flag so the reservation is released exactly once.
func destroyRow(ctx context.Context, tx dbx.DBTX, id string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE attachment_id = $1`, id); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE attachments SET deleted = TRUE, quota_reserved = FALSE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

// dropStoredChunks clears object-store payloads after the rows are gone.
// Failures leave orphaned ciphertext without any wrapped key pointing at
// it, which is harmless, so they are not propagated.
func (r *PostgresRepository) dropStoredChunks(ctx context.Context, id string) {
	if r.store == nil {
		return
	}
	_ = r.store.DeleteAll(ctx, id)
}
