// Package db wires the repository implementations behind a single manager,
// so services are built the same way against Postgres or the in-memory
// stores.
package db

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mailseal/internal/server/attachments"
	"github.com/dmitrijs2005/mailseal/internal/server/messages"
	"github.com/dmitrijs2005/mailseal/internal/server/quota"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Close() error
	Attachments() attachments.Repository
	Quotas() quota.Repository
	Messages() messages.Repository
}
