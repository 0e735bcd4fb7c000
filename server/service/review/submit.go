package review

import (
	"context"
	"log/slog"
	"math"

	"github.com/hrygo/studydeck/plugin/srs"
	apperrors "github.com/hrygo/studydeck/server/internal/errors"
	"github.com/hrygo/studydeck/server/internal/observability"
	"github.com/hrygo/studydeck/server/timezone"
	"github.com/hrygo/studydeck/store"
)

// SubmitReview records one review of a card owned by userID.
//
// The card, the learner's progress and a review log row are written in one
// transaction. Card and learner rows are updated against the versions read at
// the start of the attempt; a lost race replays the whole attempt from fresh
// reads and surfaces CONFLICT once the attempts run out.
func (s *Service) SubmitReview(ctx context.Context, userID, cardID int32, quality int, responseTime *float64) (*ReviewResult, error) {
	q, err := srs.ParseQuality(quality)
	if err != nil {
		return nil, apperrors.InvalidArgument("%s", err.Error())
	}
	if responseTime != nil {
		if rt := *responseTime; rt < 0 || math.IsNaN(rt) || math.IsInf(rt, 0) {
			return nil, apperrors.InvalidArgument("response time must be a non-negative number of seconds")
		}
	}

	var result *ReviewResult
	err = s.withRetry(ctx, "review.submit", func() error {
		var err error
		result, err = s.submitOnce(ctx, userID, cardID, q, responseTime)
		return err
	})
	if err != nil {
		return nil, toServiceError(err, "failed to submit review")
	}

	observability.LoggerFromContext(ctx).Info("review submitted",
		slog.Int(observability.LogFieldCardID, int(cardID)),
		slog.String("quality", q.String()),
		slog.String("status", string(result.Card.Status)),
		slog.Int("interval", result.Interval),
	)
	s.notify(ctx, ReviewEvent{
		UserID:     userID,
		CardID:     cardID,
		Quality:    q,
		Status:     result.Card.Status,
		NextReview: result.NextReview,
		Reward:     result.Reward,
		ReviewedAt: result.ReviewedAt,
	})
	return result, nil
}

func (s *Service) submitOnce(ctx context.Context, userID, cardID int32, quality srs.Quality, responseTime *float64) (*ReviewResult, error) {
	now := s.now()
	var result *ReviewResult

	err := s.store.RunInTx(ctx, func(tx Store) error {
		card, err := tx.GetCard(ctx, &store.FindCard{ID: &cardID, CreatorID: &userID})
		if err != nil {
			if store.IsNotFound(err) {
				return apperrors.NotFound("card %d not found", cardID)
			}
			return err
		}
		user, err := tx.GetUser(ctx, &store.FindUser{ID: &userID})
		if err != nil {
			if store.IsNotFound(err) {
				return apperrors.NotFound("user %d not found", userID)
			}
			return err
		}

		sched := srs.ComputeNextSchedule(card.SRSState(), quality, user.FrequencyMode.Profile(), now)
		counters, status := srs.AdvanceLifecycle(card.Counters(), sched, quality, responseTime)

		loc := timezone.ResolveLocation(user.Timezone, s.config.DefaultTimezone)
		progress, reward := s.ledger.Apply(user.Progress(), quality, now.In(loc))

		updatedTs := now.Unix()
		nextReviewTs := sched.NextReviewDate.Unix()
		lastReviewTs := sched.LastReviewDate.Unix()
		updated, err := tx.UpdateCard(ctx, &store.UpdateCard{
			ID:                  card.ID,
			ExpectedVersion:     &card.RowVersion,
			UpdatedTs:           &updatedTs,
			EaseFactor:          &sched.EaseFactor,
			IntervalDays:        &sched.Interval,
			Repetitions:         &sched.Repetitions,
			NextReviewTs:        &nextReviewTs,
			LastReviewTs:        &lastReviewTs,
			Status:              &status,
			TimesReviewed:       &counters.TimesReviewed,
			TimesCorrect:        &counters.TimesCorrect,
			TimesIncorrect:      &counters.TimesIncorrect,
			AverageResponseTime: counters.AverageResponseTime,
		})
		if err != nil {
			return err
		}

		if progress != user.Progress() {
			if _, err := tx.UpdateUser(ctx, &store.UpdateUser{
				ID:               user.ID,
				ExpectedVersion:  &user.RowVersion,
				UpdatedTs:        &updatedTs,
				CurrentStreak:    &progress.CurrentStreak,
				LongestStreak:    &progress.LongestStreak,
				LastStudyDate:    &progress.LastStudyDate,
				ExperiencePoints: &progress.ExperiencePoints,
				Coins:            &progress.Coins,
			}); err != nil {
				return err
			}
		}

		if _, err := tx.CreateReviewLog(ctx, &store.ReviewLog{
			CardID:       card.ID,
			UserID:       userID,
			CreatedTs:    updatedTs,
			Quality:      quality,
			ResponseTime: responseTime,
			EaseFactor:   sched.EaseFactor,
			IntervalDays: sched.Interval,
			Repetitions:  sched.Repetitions,
			Status:       status,
		}); err != nil {
			return err
		}

		result = &ReviewResult{
			Card:       updated,
			NextReview: sched.NextReviewDate,
			Interval:   sched.Interval,
			Reward:     reward,
			ReviewedAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
