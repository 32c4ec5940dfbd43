package auditlog

import (
	"context"

	"github.com/dmitrijs2005/serialgate/internal/server/models"
	"github.com/dmitrijs2005/serialgate/internal/server/repositories/auditlogs"
)

// Sink receives shipped batches. A batch may be written more than once.
type Sink interface {
	Write(ctx context.Context, b *models.LogBatch) error
}

// StoreSink writes batches to the audit_logs table.
type StoreSink struct {
	repo auditlogs.Repository
}

func NewStoreSink(repo auditlogs.Repository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Write(ctx context.Context, b *models.LogBatch) error {
	return s.repo.Insert(ctx, b)
}

// MultiSink writes to every sink in order and stops at the first failure.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, b *models.LogBatch) error {
	for _, s := range m {
		if err := s.Write(ctx, b); err != nil {
			return err
		}
	}
	return nil
}
