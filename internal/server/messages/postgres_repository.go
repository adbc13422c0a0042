package messages

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) (*PostgresRepository, error) {
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) IsLinkedViaMessage(ctx context.Context, attachmentID, principalID string) (bool, error) {

	query :=
		`SELECT EXISTS (
			SELECT 1
			FROM messages m
			JOIN message_attachments ma ON ma.message_id = m.id
			WHERE ma.attachment_id = $1
			  AND NOT m.draft
			  AND (m.sender_id = $2 OR m.recipient_id = $2)
		 )`

	var linked bool
	err := r.db.QueryRowContext(ctx, query, attachmentID, principalID).Scan(&linked)
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}

	return linked, nil
}
