package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/studydeck/plugin/srs"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t.Add(15 * time.Hour)
}

func TestLedger_FirstEverReview(t *testing.T) {
	l := NewLedger(RewardPerReview)
	next, reward := l.Apply(Progress{}, srs.QualityGood, day("2025-03-10"))

	assert.Equal(t, 1, next.CurrentStreak)
	assert.Equal(t, 1, next.LongestStreak)
	assert.Equal(t, "2025-03-10", next.LastStudyDate)
	assert.Equal(t, 15, next.ExperiencePoints)
	assert.Equal(t, 2, next.Coins)
	assert.True(t, reward.FirstReviewToday)
	assert.False(t, reward.StreakExtended)
	assert.Equal(t, 15, reward.XP)
	assert.Equal(t, 2, reward.Coins)
}

func TestLedger_StreakTransitions(t *testing.T) {
	tests := []struct {
		name       string
		last       string
		current    int
		longest    int
		today      string
		wantCur    int
		wantLong   int
		extended   bool
		firstToday bool
	}{
		{"consecutive day", "2025-03-09", 4, 6, "2025-03-10", 5, 6, true, true},
		{"new record", "2025-03-09", 6, 6, "2025-03-10", 7, 7, true, true},
		{"gap resets", "2025-03-07", 9, 9, "2025-03-10", 1, 9, false, true},
		{"same day keeps streak", "2025-03-10", 3, 5, "2025-03-10", 3, 5, false, false},
		{"month boundary", "2025-02-28", 2, 2, "2025-03-01", 3, 3, true, true},
		{"year boundary", "2024-12-31", 1, 4, "2025-01-01", 2, 4, true, true},
		{"clock went backwards", "2025-03-11", 2, 2, "2025-03-10", 1, 2, false, true},
		{"yesterday with zero streak", "2025-03-09", 0, 0, "2025-03-10", 1, 1, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger(RewardPerReview)
			prev := Progress{CurrentStreak: tt.current, LongestStreak: tt.longest, LastStudyDate: tt.last}
			next, reward := l.Apply(prev, srs.QualityEasy, day(tt.today))

			assert.Equal(t, tt.wantCur, next.CurrentStreak)
			assert.Equal(t, tt.wantLong, next.LongestStreak)
			assert.Equal(t, tt.extended, reward.StreakExtended)
			assert.Equal(t, tt.firstToday, reward.FirstReviewToday)
			assert.Equal(t, tt.today, next.LastStudyDate)
			assert.GreaterOrEqual(t, next.LongestStreak, next.CurrentStreak)
		})
	}
}

func TestLedger_RewardPolicies(t *testing.T) {
	today := day("2025-03-10")
	qualities := []srs.Quality{srs.QualityEasy, srs.QualityAgain, srs.QualityGood}

	perReview := NewLedger(RewardPerReview)
	p := Progress{LastStudyDate: "2025-03-09", CurrentStreak: 1, LongestStreak: 1}
	for _, q := range qualities {
		p, _ = perReview.Apply(p, q, today)
	}
	assert.Equal(t, 20+5+15, p.ExperiencePoints)
	assert.Equal(t, 2+1+2, p.Coins)
	assert.Equal(t, 2, p.CurrentStreak, "streak moves once per day")

	firstOfDay := NewLedger(RewardFirstOfDay)
	p = Progress{LastStudyDate: "2025-03-09", CurrentStreak: 1, LongestStreak: 1}
	var rewards []Reward
	for _, q := range qualities {
		var r Reward
		p, r = firstOfDay.Apply(p, q, today)
		rewards = append(rewards, r)
	}
	assert.Equal(t, 20, p.ExperiencePoints)
	assert.Equal(t, 2, p.Coins)
	assert.Equal(t, 2, p.CurrentStreak)
	assert.Zero(t, rewards[1].XP)
	assert.Zero(t, rewards[2].Coins)
}

func TestLedger_LocalDayBoundary(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 2025-03-10 16:00 UTC is already 2025-03-11 in Tokyo.
	instant := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	l := NewLedger(RewardPerReview)

	next, reward := l.Apply(Progress{LastStudyDate: "2025-03-10", CurrentStreak: 3, LongestStreak: 3}, srs.QualityGood, instant.In(tokyo))
	assert.Equal(t, "2025-03-11", next.LastStudyDate)
	assert.Equal(t, 4, next.CurrentStreak)
	assert.True(t, reward.StreakExtended)

	next, reward = l.Apply(Progress{LastStudyDate: "2025-03-10", CurrentStreak: 3, LongestStreak: 3}, srs.QualityGood, instant)
	assert.Equal(t, 3, next.CurrentStreak)
	assert.False(t, reward.FirstReviewToday)
}

func TestGrant(t *testing.T) {
	tests := []struct {
		quality srs.Quality
		xp      int
		coins   int
	}{
		{srs.QualityAgain, 5, 1},
		{srs.QualityHard, 10, 1},
		{srs.QualityGood, 15, 2},
		{srs.QualityEasy, 20, 2},
		{srs.Quality(0), 0, 0},
	}
	for _, tt := range tests {
		xp, coins := Grant(tt.quality)
		assert.Equal(t, tt.xp, xp, tt.quality.String())
		assert.Equal(t, tt.coins, coins, tt.quality.String())
	}
}

func TestParseRewardPolicy(t *testing.T) {
	p, err := ParseRewardPolicy("")
	require.NoError(t, err)
	assert.Equal(t, RewardPerReview, p)

	p, err = ParseRewardPolicy("first_of_day")
	require.NoError(t, err)
	assert.Equal(t, RewardFirstOfDay, p)
	assert.Equal(t, "first_of_day", p.String())

	_, err = ParseRewardPolicy("weekly")
	assert.Error(t, err)
}
