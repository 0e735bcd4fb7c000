// Package progression tracks learner streaks and the rewards granted for reviews.
package progression

import (
	"fmt"
	"time"

	"github.com/hrygo/studydeck/plugin/srs"
)

// DateLayout is the storage format of a study date in the learner's local zone.
const DateLayout = "2006-01-02"

const (
	// XPPerQualityPoint is the experience granted per quality point of a review.
	XPPerQualityPoint = 5
	// PassCoins is granted for a passing review.
	PassCoins = 2
	// FailCoins is granted for a failing review.
	FailCoins = 1
)

// RewardPolicy decides which reviews earn experience and coins.
type RewardPolicy int

const (
	// RewardPerReview grants rewards for every review.
	RewardPerReview RewardPolicy = iota
	// RewardFirstOfDay grants rewards only for the first review of a local day.
	RewardFirstOfDay
)

func (p RewardPolicy) String() string {
	switch p {
	case RewardPerReview:
		return "per_review"
	case RewardFirstOfDay:
		return "first_of_day"
	default:
		return fmt.Sprintf("RewardPolicy(%d)", int(p))
	}
}

// ParseRewardPolicy parses the configuration form of a policy.
// An empty string selects RewardPerReview.
func ParseRewardPolicy(s string) (RewardPolicy, error) {
	switch s {
	case "", "per_review":
		return RewardPerReview, nil
	case "first_of_day":
		return RewardFirstOfDay, nil
	}
	return 0, fmt.Errorf("unknown reward policy %q", s)
}

// Progress is the learner state the ledger reads and writes.
type Progress struct {
	CurrentStreak    int
	LongestStreak    int
	// LastStudyDate is empty when the learner never studied.
	LastStudyDate    string
	ExperiencePoints int
	Coins            int
}

// Reward describes what a single review changed.
type Reward struct {
	XP               int
	Coins            int
	CurrentStreak    int
	LongestStreak    int
	StreakExtended   bool
	FirstReviewToday bool
}

// Ledger applies reviews to learner progress.
type Ledger struct {
	Policy RewardPolicy
}

// NewLedger creates a ledger with the given policy.
func NewLedger(policy RewardPolicy) *Ledger {
	return &Ledger{Policy: policy}
}

// Apply records one review of the given quality on the learner's local day.
// Only the calendar date of today is used, so callers pass a time already
// converted to the learner's zone.
//
// The streak moves at most once per day: it grows when the previous study date
// is exactly yesterday and restarts at 1 otherwise.
func (l *Ledger) Apply(progress Progress, quality srs.Quality, today time.Time) (Progress, Reward) {
	next := progress
	day := today.Format(DateLayout)
	firstToday := progress.LastStudyDate != day

	reward := Reward{FirstReviewToday: firstToday}
	if firstToday {
		yesterday := time.Date(today.Year(), today.Month(), today.Day()-1, 0, 0, 0, 0, today.Location()).Format(DateLayout)
		if progress.LastStudyDate == yesterday {
			next.CurrentStreak = progress.CurrentStreak + 1
			reward.StreakExtended = true
		} else {
			next.CurrentStreak = 1
		}
		if next.CurrentStreak > next.LongestStreak {
			next.LongestStreak = next.CurrentStreak
		}
		next.LastStudyDate = day
	}

	if firstToday || l.Policy == RewardPerReview {
		reward.XP, reward.Coins = Grant(quality)
		next.ExperiencePoints += reward.XP
		next.Coins += reward.Coins
	}

	reward.CurrentStreak = next.CurrentStreak
	reward.LongestStreak = next.LongestStreak
	return next, reward
}

// Grant returns the experience and coins earned by a review of the given quality.
func Grant(quality srs.Quality) (xp, coins int) {
	if !quality.IsValid() {
		return 0, 0
	}
	xp = int(quality) * XPPerQualityPoint
	if quality.IsPass() {
		return xp, PassCoins
	}
	return xp, FailCoins
}
