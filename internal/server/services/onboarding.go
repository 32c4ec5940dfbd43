// Package services contains the bot's business logic. OnboardingService
// reconciles the registration and subscription records of a user, registers
// new subscribers and answers serial lookups.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/serialgate/internal/common"
	"github.com/dmitrijs2005/serialgate/internal/dbx"
	"github.com/dmitrijs2005/serialgate/internal/logging"
	"github.com/dmitrijs2005/serialgate/internal/server/config"
	"github.com/dmitrijs2005/serialgate/internal/server/dataset"
	"github.com/dmitrijs2005/serialgate/internal/server/metrics"
	"github.com/dmitrijs2005/serialgate/internal/server/models"
	"github.com/dmitrijs2005/serialgate/internal/server/repositories/repomanager"
)

// Validator proves an external channel identity.
type Validator interface {
	Validate(ctx context.Context, raw string) (*models.ChannelProof, error)
}

// SerialIndex resolves serial numbers.
type SerialIndex interface {
	Lookup(serial int64) (models.SerialRecord, bool)
}

type OnboardingService struct {
	db          dbx.Beginner
	repomanager repomanager.RepositoryManager
	index       SerialIndex
	validator   Validator
	logger      logging.Logger
	metrics     *metrics.Metrics
	gateLookups bool
}

func NewOnboardingService(db dbx.Beginner, m repomanager.RepositoryManager, index SerialIndex, v Validator,
	logger logging.Logger, mt *metrics.Metrics, cfg *config.Config) *OnboardingService {
	return &OnboardingService{
		db:          db,
		repomanager: m,
		index:       index,
		validator:   v,
		logger:      logger.With("module", "onboarding"),
		metrics:     mt,
		gateLookups: cfg.GateLookups,
	}
}

// State reads both records and derives the user's state.
func (s *OnboardingService) State(ctx context.Context, userID int64) (models.UserState, error) {
	registered, err := exists(s.repomanager.Registrations(s.db).Find(ctx, userID))
	if err != nil {
		return models.StateUnknown, storeErr("read registration", err)
	}
	subscribed, err := exists(s.repomanager.Subscriptions(s.db).Find(ctx, userID))
	if err != nil {
		return models.StateUnknown, storeErr("read subscription", err)
	}
	return models.DeriveState(registered, subscribed), nil
}

// OnEntry runs on /start. An orphaned registration is deleted before the
// user is asked to subscribe again.
func (s *OnboardingService) OnEntry(ctx context.Context, u models.User) (ReplyKind, error) {
	state, err := s.State(ctx, u.ID)
	if err != nil {
		return 0, err
	}

	switch state {
	case models.StateActive:
		return s.count(ReplyWelcomeBack), nil
	case models.StateOrphaned:
		if err := s.repomanager.Registrations(s.db).Delete(ctx, u.ID); err != nil {
			return 0, storeErr("delete orphaned registration", err)
		}
		s.metrics.Reconciliations.Inc()
		s.logger.Warn(ctx, "removed registration without subscription", "user_id", u.ID)
		return s.count(ReplyPromptSubscribe), nil
	case models.StatePending, models.StateUnknown:
		return s.count(ReplyPromptSubscribe), nil
	default:
		return 0, fmt.Errorf("unhandled user state %v", state)
	}
}

// HandleText answers any non-command message. Numeric text is a serial
// lookup; anything else is a subscription proof attempt.
func (s *OnboardingService) HandleText(ctx context.Context, u models.User, text string) (Reply, error) {
	if dataset.IsNumeric(text) {
		return s.lookup(ctx, u, text)
	}

	proof, err := s.validator.Validate(ctx, text)
	if err != nil {
		if errors.Is(err, common.ErrExternalCallFailed) {
			s.logger.Warn(ctx, "channel validation call failed", "user_id", u.ID, "error", err)
		} else {
			s.logger.Info(ctx, "channel validation rejected", "user_id", u.ID, "error", err)
		}
		return Reply{Kind: s.count(ReplyRegistrationFailed)}, nil
	}

	if err := s.Register(ctx, u, proof); err != nil {
		return Reply{}, err
	}
	s.logger.Info(ctx, "user registered", "user_id", u.ID, "channel_id", proof.ChannelID)
	return Reply{Kind: s.count(ReplyRegistrationSucceeded)}, nil
}

// Register commits the subscription and the registration in one
// transaction. Both writes are upserts, so repeating it is harmless.
func (s *OnboardingService) Register(ctx context.Context, u models.User, proof *models.ChannelProof) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Subscriptions(tx).Upsert(ctx, proof.Subscription(u.ID, u.Name)); err != nil {
			return err
		}
		return s.repomanager.Registrations(tx).Upsert(ctx, &models.UserRegistration{UserID: u.ID, UserName: u.Name})
	})
	if err != nil {
		return storeErr("register user", err)
	}
	return nil
}

func (s *OnboardingService) lookup(ctx context.Context, u models.User, text string) (Reply, error) {
	if s.gateLookups {
		state, err := s.State(ctx, u.ID)
		if err != nil {
			return Reply{}, err
		}
		if state != models.StateActive {
			return Reply{Kind: s.count(ReplyPromptSubscribe)}, nil
		}
	}

	serial, ok := dataset.ParseSerial(text)
	if !ok {
		return Reply{Kind: s.count(ReplySerialNotFound)}, nil
	}
	rec, ok := s.index.Lookup(serial)
	if !ok {
		s.logger.Debug(ctx, "serial not found", "user_id", u.ID, "serial", serial)
		return Reply{Kind: s.count(ReplySerialNotFound)}, nil
	}
	return Reply{Kind: s.count(ReplyLinkFound), Record: &rec}, nil
}

func (s *OnboardingService) count(k ReplyKind) ReplyKind {
	s.metrics.Replies.WithLabelValues(k.String()).Inc()
	return k
}

// exists turns a repository Find result into presence.
func exists(_ any, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrorNotFound):
		return false, nil
	default:
		return false, err
	}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrStoreUnavailable, op, err)
}
