// Package auditlogs persists shipped log batches into audit_logs.
package auditlogs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/serialgate/internal/dbx"
	"github.com/dmitrijs2005/serialgate/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores one batch. Logs are kept as a JSON array of raw lines.
func (r *PostgresRepository) Insert(ctx context.Context, b *models.LogBatch) error {
	logs := b.Logs
	if logs == nil {
		logs = []string{}
	}
	payload, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("marshal logs: %w", err)
	}

	query :=
		`INSERT INTO audit_logs (id, timestamp, logs)
		 VALUES ($1, $2, $3)
		 `

	if _, err := r.db.ExecContext(ctx, query, b.ID, b.UnixSeconds(), payload); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
