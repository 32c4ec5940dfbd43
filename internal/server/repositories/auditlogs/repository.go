package auditlogs

import (
	"context"

	"github.com/dmitrijs2005/serialgate/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, b *models.LogBatch) error
}
