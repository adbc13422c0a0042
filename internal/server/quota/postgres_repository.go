package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mailseal/internal/common"
	"github.com/dmitrijs2005/mailseal/internal/dbx"
	"github.com/dmitrijs2005/mailseal/internal/server/models"
)

type PostgresRepository struct {
	db           *sql.DB
	defaultLimit int64
}

func NewPostgresRepository(db *sql.DB, defaultLimit int64) (*PostgresRepository, error) {
	return &PostgresRepository{db: db, defaultLimit: defaultLimit}, nil
}

func (r *PostgresRepository) Reserve(ctx context.Context, ownerID string, bytes int64) error {

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {

		_, err := tx.ExecContext(ctx,
			`INSERT INTO quotas (owner_id, used_bytes, limit_bytes)
			 VALUES ($1, 0, $2)
			 ON CONFLICT (owner_id) DO NOTHING`,
			ownerID, r.defaultLimit)
		if err != nil {
			return fmt.Errorf("error performing sql request: %w", err)
		}

		// The guarded UPDATE is the atomic check-and-reserve; zero rows
		// means the reservation would cross the limit.
		res, err := tx.ExecContext(ctx,
			`UPDATE quotas
			 SET used_bytes = used_bytes + $2
			 WHERE owner_id = $1 AND used_bytes + $2 <= limit_bytes`,
			ownerID, bytes)
		if err != nil {
			return fmt.Errorf("error performing sql request: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return common.ErrQuotaExceeded
		}
		return nil
	})
}

func (r *PostgresRepository) Release(ctx context.Context, ownerID string, bytes int64) error {

	_, err := r.db.ExecContext(ctx,
		`UPDATE quotas
		 SET used_bytes = GREATEST(0, used_bytes - $2)
		 WHERE owner_id = $1`,
		ownerID, bytes)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID string) (*models.Quota, error) {

	q := &models.Quota{OwnerID: ownerID}
	err := r.db.QueryRowContext(ctx,
		`SELECT used_bytes, limit_bytes FROM quotas WHERE owner_id = $1`,
		ownerID).Scan(&q.UsedBytes, &q.LimitBytes)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			q.LimitBytes = r.defaultLimit
			return q, nil
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return q, nil
}
