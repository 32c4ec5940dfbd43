package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/serialgate/internal/dbx"
	"github.com/dmitrijs2005/serialgate/internal/server/repositories/auditlogs"
	"github.com/dmitrijs2005/serialgate/internal/server/repositories/registrations"
	"github.com/dmitrijs2005/serialgate/internal/server/repositories/subscriptions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Registrations(db dbx.DBTX) registrations.Repository
	Subscriptions(db dbx.DBTX) subscriptions.Repository
	AuditLogs(db dbx.DBTX) auditlogs.Repository
}
