// Package registrations stores onboarding completions in the registered table.
package registrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/serialgate/internal/common"
	"github.com/dmitrijs2005/serialgate/internal/dbx"
	"github.com/dmitrijs2005/serialgate/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert writes the registration keyed by user_id; repeating it for the same
// user only refreshes the name.
func (r *PostgresRepository) Upsert(ctx context.Context, reg *models.UserRegistration) error {
	query :=
		`INSERT INTO registered (user_id, user_name)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET user_name = EXCLUDED.user_name
		 `

	if _, err := r.db.ExecContext(ctx, query, reg.UserID, reg.UserName); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, userID int64) (*models.UserRegistration, error) {
	query :=
		`SELECT user_id, user_name FROM registered
		 WHERE user_id = $1
		 `

	reg := &models.UserRegistration{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&reg.UserID, &reg.UserName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return reg, nil
}

// Delete removes the registration. Deleting an absent row is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, userID int64) error {
	query :=
		`DELETE FROM registered
		 WHERE user_id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
