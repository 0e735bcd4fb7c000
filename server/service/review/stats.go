package review

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/studydeck/server/timezone"
	"github.com/hrygo/studydeck/store"
)

// GetStats summarizes the learner's cards and progress. "Today" is the
// learner's local calendar day.
func (s *Service) GetStats(ctx context.Context, userID int32) (*Stats, error) {
	now := s.now()

	var (
		user          *store.User
		reviewedToday int
		cardStats     *store.CardStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.store.GetUser(gctx, &store.FindUser{ID: &userID})
		if err != nil {
			return err
		}
		loc := timezone.ResolveLocation(user.Timezone, s.config.DefaultTimezone)
		startOfDay := timezone.StartOfDay(now, loc).Unix()
		reviewedToday, err = s.store.CountReviewLogs(gctx, &store.FindReviewLog{UserID: &userID, CreatedTsAfter: &startOfDay})
		return err
	})
	g.Go(func() error {
		var err error
		cardStats, err = s.store.GetCardStats(gctx, &store.FindCardStats{CreatorID: userID, DueBefore: now.Unix()})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, toServiceError(err, "failed to get stats")
	}

	stats := &Stats{
		TotalCards:       cardStats.Total,
		DueNow:           cardStats.Due,
		Suspended:        cardStats.Suspended,
		ReviewedToday:    reviewedToday,
		ByStatus:         cardStats.ByStatus,
		CurrentStreak:    user.CurrentStreak,
		LongestStreak:    user.LongestStreak,
		ExperiencePoints: user.ExperiencePoints,
		Coins:            user.Coins,
	}
	if cardStats.TimesReviewed > 0 {
		stats.Accuracy = math.Round(float64(cardStats.TimesCorrect)/float64(cardStats.TimesReviewed)*1000) / 10
	}
	return stats, nil
}
