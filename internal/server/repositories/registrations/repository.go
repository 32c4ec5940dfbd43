package registrations

import (
	"context"

	"github.com/dmitrijs2005/serialgate/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, r *models.UserRegistration) error
	Find(ctx context.Context, userID int64) (*models.UserRegistration, error)
	Delete(ctx context.Context, userID int64) error
}
