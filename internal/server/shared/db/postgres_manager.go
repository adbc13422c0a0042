package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/mailseal/internal/server/attachments"
	"github.com/dmitrijs2005/mailseal/internal/server/chunkstore"
	"github.com/dmitrijs2005/mailseal/internal/server/messages"
	"github.com/dmitrijs2005/mailseal/internal/server/migrations"
	"github.com/dmitrijs2005/mailseal/internal/server/quota"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct {
	db          *sql.DB
	attachments attachments.Repository
	quotas      quota.Repository
	messages    messages.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

func (m *PostgresRepositoryManager) Attachments() attachments.Repository {
	return m.attachments
}

func (m *PostgresRepositoryManager) Quotas() quota.Repository {
	return m.quotas
}

func (m *PostgresRepositoryManager) Messages() messages.Repository {
	return m.messages
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

// NewPostgresRepositoryManager opens the database, builds the repositories,
// and applies pending migrations. store may be nil, in which case chunk
// ciphertext stays in the chunks table.
func NewPostgresRepositoryManager(dsn string, defaultQuotaLimit int64, store chunkstore.Store) (RepositoryManager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	attachRepo, err := attachments.NewPostgresRepository(db, store)
	if err != nil {
		return nil, fmt.Errorf("attachment repo creation error: %w", err)
	}

	quotaRepo, err := quota.NewPostgresRepository(db, defaultQuotaLimit)
	if err != nil {
		return nil, fmt.Errorf("quota repo creation error: %w", err)
	}

	messageRepo, err := messages.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("message repo creation error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:          db,
		attachments: attachRepo,
		quotas:      quotaRepo,
		messages:    messageRepo,
	}

	err = m.RunMigrations(context.Background())
	if err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
