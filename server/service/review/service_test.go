package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/studydeck/plugin/progression"
	"github.com/hrygo/studydeck/plugin/srs"
	apperrors "github.com/hrygo/studydeck/server/internal/errors"
	"github.com/hrygo/studydeck/server/internal/observability"
	"github.com/hrygo/studydeck/store"
)

var testNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, config Config) (*Service, *mockStore) {
	t.Helper()
	ms := newMockStore()
	svc := NewServiceWithConfig(ms, config)
	svc.now = func() time.Time { return testNow }
	return svc, ms
}

func ownedBy(id int32) *int32 { return &id }

func TestSubmitReview_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		card        store.Card
		quality     int
		ease        float64
		interval    int
		repetitions int
		status      srs.Status
	}{
		{
			name:        "new card easy",
			card:        store.Card{},
			quality:     4,
			ease:        2.5,
			interval:    1,
			repetitions: 1,
			status:      srs.StatusLearning,
		},
		{
			name:        "second pass uses second interval",
			card:        store.Card{EaseFactor: 2.5, IntervalDays: 1, Repetitions: 1, TimesReviewed: 1, TimesCorrect: 1, Status: srs.StatusLearning},
			quality:     3,
			ease:        2.5,
			interval:    4,
			repetitions: 2,
			status:      srs.StatusLearning,
		},
		{
			name:        "failure resets",
			card:        store.Card{EaseFactor: 2.3, IntervalDays: 10, Repetitions: 5, TimesReviewed: 5, TimesCorrect: 5, Status: srs.StatusReviewing},
			quality:     1,
			ease:        1.98,
			interval:    1,
			repetitions: 0,
			status:      srs.StatusLearning,
		},
		{
			name:        "long streak masters",
			card:        store.Card{EaseFactor: 2.4, IntervalDays: 40, Repetitions: 10, TimesReviewed: 10, TimesCorrect: 10, Status: srs.StatusReviewing},
			quality:     4,
			ease:        2.5,
			interval:    96,
			repetitions: 11,
			status:      srs.StatusMastered,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, ms := newTestService(t, DefaultConfig())
			user := ms.addUser(store.User{Username: "alice", Timezone: "UTC"})
			tt.card.CreatorID = ownedBy(user.ID)
			card := ms.addCard(tt.card)

			result, err := svc.SubmitReview(ctx, user.ID, card.ID, tt.quality, nil)
			require.NoError(t, err)

			assert.InDelta(t, tt.ease, result.Card.EaseFactor, 1e-9)
			assert.Equal(t, tt.interval, result.Interval)
			assert.Equal(t, tt.interval, result.Card.IntervalDays)
			assert.Equal(t, tt.repetitions, result.Card.Repetitions)
			assert.Equal(t, tt.status, result.Card.Status)
			assert.True(t, result.NextReview.Equal(testNow.AddDate(0, 0, tt.interval)))
			assert.Equal(t, testNow.AddDate(0, 0, tt.interval).Unix(), result.Card.NextReviewTs)
			require.NotNil(t, result.Card.LastReviewTs)
			assert.Equal(t, testNow.Unix(), *result.Card.LastReviewTs)
			assert.Equal(t, tt.card.TimesReviewed+1, result.Card.TimesReviewed)
			assert.Equal(t, result.Card.TimesReviewed, result.Card.TimesCorrect+result.Card.TimesIncorrect)

			stored := ms.card(card.ID)
			assert.Equal(t, result.Card.RowVersion, stored.RowVersion)
			assert.Equal(t, 1, ms.logCount())
		})
	}
}

func TestSubmitReview_Validation(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t, DefaultConfig())
	user := ms.addUser(store.User{Username: "alice"})
	card := ms.addCard(store.Card{CreatorID: ownedBy(user.ID)})

	for _, q := range []int{0, 5, -1} {
		_, err := svc.SubmitReview(ctx, user.ID, card.ID, q, nil)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument), "quality %d", q)
	}
	negative := -2.0
	_, err := svc.SubmitReview(ctx, user.ID, card.ID, 3, &negative)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))

	assert.Equal(t, 0, ms.logCount())
	assert.Equal(t, int64(1), ms.card(card.ID).RowVersion)
}

func TestSubmitReview_NotOwned(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t, DefaultConfig())
	alice := ms.addUser(store.User{Username: "alice"})
	bob := ms.addUser(store.User{Username: "bob"})
	card := ms.addCard(store.Card{CreatorID: ownedBy(alice.ID)})
	template := ms.addCard(store.Card{})

	_, err := svc.SubmitReview(ctx, bob.ID, card.ID, 4, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	_, err = svc.SubmitReview(ctx, bob.ID, template.ID, 4, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	_, err = svc.SubmitReview(ctx, alice.ID, 999, 4, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	assert.Equal(t, int64(1), ms.card(card.ID).RowVersion)
	assert.Equal(t, 0, ms.user(bob.ID).ExperiencePoints)
}

func TestSubmitReview_InactiveCardStillReviewable(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t, DefaultConfig())
	user := ms.addUser(store.User{Username: "alice"})
	card := ms.addCard(store.Card{CreatorID: ownedBy(user.ID), IsSuspended: true})

	result, err := svc.SubmitReview(ctx, user.ID, card.ID, 3, nil)
	require.NoError(t, err)
	assert.True(t, result.Card.IsSuspended)
	assert.Equal(t, 1, result.Card.TimesReviewed)
}

func TestSubmitReview_ResponseTime(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t, DefaultConfig())
	user := ms.addUser(store.User{Username: "alice"})
	card := ms.addCard(store.Card{CreatorID: ownedBy(user.ID)})

	first, second := 6.0, 2.0
	_, err := svc.SubmitReview(ctx, user.ID, card.ID, 3, &first)
	require.NoError(t, err)
	result, err := svc.SubmitReview(ctx, user.ID, card.ID, 3, &second)
	require.NoError(t, err)
	require.NotNil(t, result.Card.AverageResponseTime)
	assert.Equal(t, 4.0, *result.Card.AverageResponseTime)

	result, err = svc.SubmitReview(ctx, user.ID, card.ID, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 4.0, *result.Card.AverageResponseTime)
}

func TestSubmitReview_RetriesVersionConflict(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics(100)
	config := DefaultConfig()
	config.Metrics = metrics
	svc, ms := newTestService(t, config)
	user := ms.addUser(store.User{Username: "alice"})
	card := ms.addCard(store.Card{CreatorID: ownedBy(user.ID)})
	ms.cardConflicts = 2

	result, err := svc.SubmitReview(ctx, user.ID, card.ID, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Card.TimesReviewed)
	assert.Equal(t, 3, ms.updateCalls)
	assert.Equal(t, 1, ms.logCount())
	assert.Equal(t, progression.XPPerQualityPoint*4, ms.user(user.ID).ExperiencePoints)
	assert.Equal(t, int64(2), metrics.Snapshot().Retries)
}

func TestSubmitReview_ConflictExhausted(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t, DefaultConfig())
	user := ms.addUser(store.User{Username: "alice"})
	card := ms.addCard(store.Card{CreatorID: ownedBy(user.ID)})
	ms.cardConflicts = DefaultMaxAttempts

	_, err := svc.SubmitReview(ctx, user.ID, card.ID, 4, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
	assert.True(t, store.IsVersionConflict(err))

	assert.Equal(t, DefaultMaxAttempts, ms.updateCalls)
	assert.Equal(t, 0, ms.logCount())
	assert.Equal(t, 0, ms.card(card.ID).TimesReviewed)
	assert.Equal(t, "", ms.user(user.ID).LastStudyDate)
}

func TestSubmitReview_PersistenceFailureRollsBack(t *testing.T) {
	writeErr := errors.New("disk I/O error")
	tests := []struct {
		name   string
		inject func(ms *mockStore)
	}{
		{"user update fails", func(ms *mockStore) { ms.userUpdateErr = writeErr }},
		{"review log fails", func(ms *mockStore) { ms.logErr = writeErr }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, ms := newTestService(t, DefaultConfig())
			user := ms.addUser(store.User{
				Username:         "alice",
				CurrentStreak:    3,
				LongestStreak:    5,
				LastStudyDate:    "2025-03-09",
				ExperiencePoints: 40,
				Coins:            6,
			})
			card := ms.addCard(store.Card{
				CreatorID:      ownedBy(user.ID),
				EaseFactor:     2.2,
				IntervalDays:   6,
				Repetitions:    3,
				Status:         srs.StatusReviewing,
				TimesReviewed:  4,
				TimesCorrect:   3,
				TimesIncorrect: 1,
				NextReviewTs:   testNow.Unix(),
			})
			tt.inject(ms)

			_, err := svc.SubmitReview(ctx, user.ID, card.ID, 4, nil)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodePersistence, apperrors.CodeOf(err))
			assert.ErrorIs(t, err, writeErr)
			assert.Equal(t, 1, ms.updateCalls, "persistence failures are not retried")

			stored := ms.card(card.ID)
			assert.Equal(t, *card, stored)
			assert.Equal(t, 2.2, stored.EaseFactor)
			assert.Equal(t, 6, stored.IntervalDays)
			assert.Equal(t, 3, stored.Repetitions)
			assert.Equal(t, srs.StatusReviewing, stored.Status)
			assert.Equal(t, 4, stored.TimesReviewed)
			assert.Equal(t, 3, stored.TimesCorrect)
			assert.Equal(t, 1, stored.TimesIncorrect)

			storedUser := ms.user(user.ID)
			assert.Equal(t, *user, storedUser)
			assert.Equal(t, 40, storedUser.ExperiencePoints)
			assert.Equal(t, 3, storedUser.CurrentStreak)
			assert.Equal(t, "2025-03-09", storedUser.LastStudyDate)

			assert.Zero(t, ms.logCount())
		})
	}
}

func TestSubmitReview_StreakAndRewards(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t, DefaultConfig())
	user := ms.addUser(store.User{
		Username:      "alice",
		Timezone:      "Asia/Tokyo",
		CurrentStreak: 4,
		LongestStreak: 4,
		LastStudyDate: "2025-03-09",
	})
	card := ms.addCard(store.Card{CreatorID: ownedBy(user.ID)})

	// 09:30 UTC is 18:30 in Tokyo, still March 10.
	result, err := svc.SubmitReview(ctx, user.ID, card.ID, 3, nil)
	require.NoError(t, err)
	assert.True(t, result.Reward.FirstReviewToday)
	assert.True(t, result.Reward.StreakExtended)
	assert.Equal(t, 5, result.Reward.CurrentStreak)
	assert.Equal(t, 5, result.Reward.LongestStreak)
	assert.Equal(t, 15, result.Reward.XP)
	assert.Equal(t, progression.PassCoins, result.Reward.Coins)

	result, err = svc.SubmitReview(ctx, user.ID, card.ID, 1, nil)
	require.NoError(t, err)
	assert.False(t, result.Reward.FirstReviewToday)
	assert.Equal(t, 5, result.Reward.CurrentStreak)

	stored := ms.user(user.ID)
	assert.Equal(t, "2025-03-10", stored.LastStudyDate)
	assert.Equal(t, 5, stored.CurrentStreak)
	assert.Equal(t, 15+5, stored.ExperiencePoints)
	assert.Equal(t, progression.PassCoins+progression.FailCoins, stored.Coins)
}

func TestSubmitReview_FirstOfDayPolicy(t *testing.T) {
	ctx := context.Background()
	config := DefaultConfig()
	config.RewardPolicy = progression.RewardFirstOfDay
	svc, ms := newTestService(t, config)
	user := ms.addUser(store.User{Username: "alice"})
	card := ms.addCard(store.Card{CreatorID: ownedBy(user.ID)})

	_, err := svc.SubmitReview(ctx, user.ID, card.ID, 4, nil)
	require.NoError(t, err)
	version := ms.user(user.ID).RowVersion

	result, err := svc.SubmitReview(ctx, user.ID, card.ID, 4, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Reward.XP)
	assert.Equal(t, version, ms.user(user.ID).RowVersion, "unchanged progress is not written")
	assert.Equal(t, 2, ms.logCount())
}

type chanNotifier chan ReviewEvent

func (n chanNotifier) ReviewRecorded(_ context.Context, event ReviewEvent) error {
	n <- event
	return nil
}

func TestSubmitReview_Notifies(t *testing.T) {
	ctx := context.Background()
	events := make(chanNotifier, 1)
	config := DefaultConfig()
	config.Notifier = events
	svc, ms := newTestService(t, config)
	user := ms.addUser(store.User{Username: "alice"})
	card := ms.addCard(store.Card{CreatorID: ownedBy(user.ID)})

	_, err := svc.SubmitReview(ctx, user.ID, card.ID, 2, nil)
	require.NoError(t, err)

	select {
	case event := <-events:
		assert.Equal(t, user.ID, event.UserID)
		assert.Equal(t, card.ID, event.CardID)
		assert.Equal(t, srs.QualityHard, event.Quality)
		assert.Equal(t, srs.StatusLearning, event.Status)
		assert.True(t, event.ReviewedAt.Equal(testNow))
	case <-time.After(time.Second):
		t.Fatal("notifier was not called")
	}
}

func TestDueCards(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t, DefaultConfig())
	alice := ms.addUser(store.User{Username: "alice"})
	bob := ms.addUser(store.User{Username: "bob"})

	past := testNow.Add(-time.Hour).Unix()
	older := testNow.Add(-48 * time.Hour).Unix()
	first := ms.addCard(store.Card{CreatorID: ownedBy(alice.ID), CourseID: 1, NextReviewTs: past})
	second := ms.addCard(store.Card{CreatorID: ownedBy(alice.ID), CourseID: 2, NextReviewTs: older})
	tie := ms.addCard(store.Card{CreatorID: ownedBy(alice.ID), CourseID: 1, NextReviewTs: past})
	ms.addCard(store.Card{CreatorID: ownedBy(alice.ID), CourseID: 1, NextReviewTs: testNow.Add(time.Hour).Unix()})
	ms.addCard(store.Card{CreatorID: ownedBy(alice.ID), CourseID: 1, NextReviewTs: past, IsSuspended: true})
	ms.addCard(store.Card{CreatorID: ownedBy(bob.ID), CourseID: 1, NextReviewTs: past})
	ms.addCard(store.Card{CourseID: 1, NextReviewTs: past})

	cards, err := svc.DueCards(ctx, alice.ID, DueFilter{})
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, []int32{second.ID, first.ID, tie.ID}, []int32{cards[0].ID, cards[1].ID, cards[2].ID})

	course := int32(1)
	cards, err = svc.DueCards(ctx, alice.ID, DueFilter{CourseID: &course, Limit: 1})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, first.ID, cards[0].ID)

	cards, err = svc.DueCards(ctx, bob.ID, DueFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestDueCards_LimitClamp(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t, DefaultConfig())
	user := ms.addUser(store.User{Username: "alice"})
	for i := 0; i < MaxDueLimit+5; i++ {
		ms.addCard(store.Card{CreatorID: ownedBy(user.ID), NextReviewTs: testNow.Unix() - int64(i)})
	}

	cards, err := svc.DueCards(ctx, user.ID, DueFilter{Limit: -3})
	require.NoError(t, err)
	assert.Len(t, cards, DefaultDueLimit)

	cards, err = svc.DueCards(ctx, user.ID, DueFilter{Limit: MaxDueLimit * 2})
	require.NoError(t, err)
	assert.Len(t, cards, MaxDueLimit)
}

func TestSkipCard(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t, DefaultConfig())
	user := ms.addUser(store.User{Username: "alice"})
	card := ms.addCard(store.Card{
		CreatorID:    ownedBy(user.ID),
		EaseFactor:   2.2,
		IntervalDays: 6,
		Repetitions:  3,
		Status:       srs.StatusReviewing,
		NextReviewTs: testNow.Unix(),
	})

	skipped, err := svc.SkipCard(ctx, user.ID, card.ID)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(SkipDelay).Unix(), skipped.NextReviewTs)
	assert.Equal(t, 2.2, skipped.EaseFactor)
	assert.Equal(t, 6, skipped.IntervalDays)
	assert.Equal(t, 3, skipped.Repetitions)
	assert.Equal(t, srs.StatusReviewing, skipped.Status)
	assert.Equal(t, 0, skipped.TimesReviewed)

	due, err := svc.DueCards(ctx, user.ID, DueFilter{})
	require.NoError(t, err)
	assert.Empty(t, due)

	other := ms.addUser(store.User{Username: "bob"})
	_, err = svc.SkipCard(ctx, other.ID, card.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestSuspendAndResumeCard(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t, DefaultConfig())
	user := ms.addUser(store.User{Username: "alice"})
	card := ms.addCard(store.Card{CreatorID: ownedBy(user.ID), NextReviewTs: testNow.Unix()})

	suspended, err := svc.SuspendCard(ctx, user.ID, card.ID)
	require.NoError(t, err)
	assert.True(t, suspended.IsSuspended)
	due, err := svc.DueCards(ctx, user.ID, DueFilter{})
	require.NoError(t, err)
	assert.Empty(t, due)

	again, err := svc.SuspendCard(ctx, user.ID, card.ID)
	require.NoError(t, err)
	assert.Equal(t, suspended.RowVersion, again.RowVersion)

	resumed, err := svc.ResumeCard(ctx, user.ID, card.ID)
	require.NoError(t, err)
	assert.False(t, resumed.IsSuspended)
	due, err = svc.DueCards(ctx, user.ID, DueFilter{})
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestStudyProfile(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t, DefaultConfig())
	user := ms.addUser(store.User{Username: "alice", CurrentStreak: 2, Coins: 7})

	profile, err := svc.GetStudyProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, srs.FrequencyNormal, profile.FrequencyMode)
	assert.Equal(t, 2, profile.CurrentStreak)
	assert.Equal(t, 7, profile.Coins)

	mode, zone := "relaxed", "Europe/Paris"
	profile, err = svc.UpdateStudyProfile(ctx, user.ID, UpdateStudyProfile{FrequencyMode: &mode, Timezone: &zone})
	require.NoError(t, err)
	assert.Equal(t, srs.FrequencyRelaxed, profile.FrequencyMode)
	assert.Equal(t, "Europe/Paris", profile.Timezone)

	bad := "turbo"
	_, err = svc.UpdateStudyProfile(ctx, user.ID, UpdateStudyProfile{FrequencyMode: &bad})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))
	badZone := "Mars/Olympus"
	_, err = svc.UpdateStudyProfile(ctx, user.ID, UpdateStudyProfile{Timezone: &badZone})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))

	_, err = svc.GetStudyProfile(ctx, 999)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestFrequencyModeAppliesToNextReview(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t, DefaultConfig())
	user := ms.addUser(store.User{Username: "alice"})
	card := ms.addCard(store.Card{CreatorID: ownedBy(user.ID), EaseFactor: 2.5, IntervalDays: 1, Repetitions: 1, TimesReviewed: 1, TimesCorrect: 1})

	mode := "relaxed"
	_, err := svc.UpdateStudyProfile(ctx, user.ID, UpdateStudyProfile{FrequencyMode: &mode})
	require.NoError(t, err)
	assert.Equal(t, 1, ms.card(card.ID).IntervalDays)

	result, err := svc.SubmitReview(ctx, user.ID, card.ID, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, result.Interval)
}

func TestGetStats(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t, DefaultConfig())
	user := ms.addUser(store.User{Username: "alice"})
	a := ms.addCard(store.Card{CreatorID: ownedBy(user.ID), NextReviewTs: testNow.Unix()})
	b := ms.addCard(store.Card{CreatorID: ownedBy(user.ID), NextReviewTs: testNow.Unix()})
	ms.addCard(store.Card{CreatorID: ownedBy(user.ID), NextReviewTs: testNow.Unix(), IsSuspended: true})

	stats, err := svc.GetStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalCards)
	assert.Equal(t, 2, stats.DueNow)
	assert.Equal(t, 1, stats.Suspended)
	assert.Zero(t, stats.ReviewedToday)
	assert.Zero(t, stats.Accuracy)

	for _, q := range []int{4, 3, 1} {
		_, err := svc.SubmitReview(ctx, user.ID, a.ID, q, nil)
		require.NoError(t, err)
	}
	_, err = svc.SubmitReview(ctx, user.ID, b.ID, 2, nil)
	require.NoError(t, err)

	stats, err = svc.GetStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.ReviewedToday)
	assert.Equal(t, 50.0, stats.Accuracy)
	assert.Equal(t, 0, stats.DueNow)
	assert.Equal(t, 2, stats.ByStatus[srs.StatusLearning])
	assert.Equal(t, 1, stats.ByStatus[srs.StatusNew])
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 5*(4+3+1+2), stats.ExperiencePoints)
}
