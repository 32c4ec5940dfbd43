// Package subscriptions stores the proof of channel subscription per user.
package subscriptions

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

func (r *PostgresRepository) Upsert(ctx context.Context, s *models.UserSubscription) error {
	query :=
		`INSERT INTO subscribed (user_id, user_name, channel_id, channel_handle)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET
		   user_name = EXCLUDED.user_name,
		   channel_id = EXCLUDED.channel_id,
		   channel_handle = EXCLUDED.channel_handle
		 `

	_, err := r.db.ExecContext(ctx, query, s.UserID, s.UserName, toNull(s.ChannelID), toNull(s.ChannelHandle))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, userID int64) (*models.UserSubscription, error) {
	query :=
		`SELECT user_id, user_name, channel_id, channel_handle FROM subscribed
		 WHERE user_id = $1
		 `

	s := &models.UserSubscription{}
	var channelID, handle sql.NullString

	err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.UserID, &s.UserName, &channelID, &handle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	s.ChannelID = fromNull(channelID)
	s.ChannelHandle = fromNull(handle)

	return s, nil
}

func toNull(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func fromNull(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
