// Package review runs review submissions and the due queue on top of the
// scheduling engine, the card lifecycle and the streak ledger.
package review

import (
	"context"
	goerrors "errors"
	"log/slog"
	"time"

	"github.com/hrygo/studydeck/plugin/progression"
	apperrors "github.com/hrygo/studydeck/server/internal/errors"
	"github.com/hrygo/studydeck/server/internal/observability"
	"github.com/hrygo/studydeck/store"
)

// Config holds the tunables of the review service.
type Config struct {
	// DefaultTimezone is used for learners without a zone of their own.
	DefaultTimezone string
	RewardPolicy    progression.RewardPolicy
	// MaxAttempts bounds how often a review is replayed after losing a version race.
	MaxAttempts int
	// Notifier is told about every committed review; nil disables notifications.
	Notifier Notifier
	// Metrics counts retried writes; nil disables counting.
	Metrics *observability.Metrics
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTimezone: "UTC",
		RewardPolicy:    progression.RewardPerReview,
		MaxAttempts:     DefaultMaxAttempts,
	}
}

// Service provides card review functionality.
type Service struct {
	store  Store
	config Config
	ledger *progression.Ledger
	now    func() time.Time
}

// NewService creates a new review service.
func NewService(s Store) *Service {
	return NewServiceWithConfig(s, DefaultConfig())
}

// NewServiceWithConfig creates a service with custom configuration.
func NewServiceWithConfig(s Store, config Config) *Service {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	return &Service{
		store:  s,
		config: config,
		ledger: progression.NewLedger(config.RewardPolicy),
		now:    time.Now,
	}
}

// withRetry runs fn until it stops failing with a version conflict, up to
// MaxAttempts times. fn must re-read everything it writes.
func (s *Service) withRetry(ctx context.Context, operation string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		if err = fn(); err == nil || !store.IsVersionConflict(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if s.config.Metrics != nil {
			s.config.Metrics.RecordRetry()
		}
		observability.LoggerFromContext(ctx).Warn("version conflict, retrying",
			slog.String(observability.LogFieldOperation, operation),
			slog.Int(observability.LogFieldAttempt, attempt),
		)
	}
	return err
}

// toServiceError maps store errors to coded errors. Coded errors pass through.
func toServiceError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var coded *apperrors.Error
	switch {
	case goerrors.As(err, &coded):
		return coded
	case store.IsNotFound(err):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, msg)
	case store.IsVersionConflict(err):
		return apperrors.Conflict(msg+": concurrent update, try again", err)
	default:
		return apperrors.Persistence(msg, err)
	}
}

func (s *Service) notify(ctx context.Context, event ReviewEvent) {
	notifier := s.config.Notifier
	if notifier == nil {
		return
	}
	logger := observability.LoggerFromContext(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("review notifier panicked", slog.Any("panic", r))
			}
		}()
		if err := notifier.ReviewRecorded(ctx, event); err != nil {
			logger.Warn("failed to notify review", slog.String("error", err.Error()))
		}
	}()
}
