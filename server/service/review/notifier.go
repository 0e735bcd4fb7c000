package review

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/studydeck/plugin/progression"
	"github.com/hrygo/studydeck/plugin/srs"
)

// ReviewEvent describes a committed review.
type ReviewEvent struct {
	UserID     int32
	CardID     int32
	Quality    srs.Quality
	Status     srs.Status
	NextReview time.Time
	Reward     progression.Reward
	ReviewedAt time.Time
}

// Notifier receives committed reviews, for example an audit or XP ledger.
// Notifications are delivered asynchronously and failures never affect the review.
type Notifier interface {
	ReviewRecorded(ctx context.Context, event ReviewEvent) error
}

// LogNotifier writes review events to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) ReviewRecorded(ctx context.Context, event ReviewEvent) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "review recorded",
		slog.Int("user_id", int(event.UserID)),
		slog.Int("card_id", int(event.CardID)),
		slog.String("quality", event.Quality.String()),
		slog.String("status", string(event.Status)),
		slog.Time("next_review", event.NextReview),
		slog.Int("xp", event.Reward.XP),
		slog.Int("coins", event.Reward.Coins),
		slog.Int("streak", event.Reward.CurrentStreak),
	)
	return nil
}
