package db

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mailseal/internal/server/attachments"
	"github.com/dmitrijs2005/mailseal/internal/server/messages"
	"github.com/dmitrijs2005/mailseal/internal/server/quota"
)

// InMemoryRepositoryManager serves tests and dev mode without a database.
type InMemoryRepositoryManager struct {
	attachments attachments.Repository
	quotas      quota.Repository
	messages    messages.Repository
}

func (m *InMemoryRepositoryManager) Conn() *sql.DB {
	return nil
}

func (m *InMemoryRepositoryManager) Close() error {
	return nil
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) Attachments() attachments.Repository {
	return m.attachments
}

func (m *InMemoryRepositoryManager) Quotas() quota.Repository {
	return m.quotas
}

func (m *InMemoryRepositoryManager) Messages() messages.Repository {
	return m.messages
}

func NewInMemoryRepositoryManager(defaultQuotaLimit int64) RepositoryManager {
	return &InMemoryRepositoryManager{
		attachments: attachments.NewInMemoryRepository(),
		quotas:      quota.NewInMemoryRepository(defaultQuotaLimit),
		messages:    messages.NewInMemoryRepository(),
	}
}
