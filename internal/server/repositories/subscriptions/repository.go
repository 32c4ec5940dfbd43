package subscriptions

import (
	"context"

	"github.com/dmitrijs2005/serialgate/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, s *models.UserSubscription) error
	Find(ctx context.Context, userID int64) (*models.UserSubscription, error)
}
