package review

import (
	"time"

	"github.com/hrygo/studydeck/plugin/progression"
	"github.com/hrygo/studydeck/plugin/srs"
	"github.com/hrygo/studydeck/store"
)

const (
	// DefaultDueLimit is used when a due query asks for no positive limit.
	DefaultDueLimit = 20
	// MaxDueLimit caps the size of one due query.
	MaxDueLimit = 100
	// SkipDelay is how far a skipped card is pushed back.
	SkipDelay = time.Hour
	// DefaultMaxAttempts bounds optimistic retries of one review.
	DefaultMaxAttempts = 3
)

// ReviewResult is returned by SubmitReview.
type ReviewResult struct {
	Card       *store.Card
	NextReview time.Time
	Interval   int
	Reward     progression.Reward
	ReviewedAt time.Time
}

// DueFilter narrows a due query.
type DueFilter struct {
	CourseID *int32
	// Limit is clamped to [1, MaxDueLimit]; non-positive selects DefaultDueLimit.
	Limit int
}

// StudyProfile is the scheduling-relevant part of a learner.
type StudyProfile struct {
	UserID           int32
	FrequencyMode    srs.FrequencyMode
	Timezone         string
	CurrentStreak    int
	LongestStreak    int
	LastStudyDate    string
	ExperiencePoints int
	Coins            int
}

// UpdateStudyProfile changes the learner's preferences. Nil fields are kept.
type UpdateStudyProfile struct {
	FrequencyMode *string
	Timezone      *string
}

// Stats summarizes a learner's progress.
type Stats struct {
	TotalCards       int
	DueNow           int
	Suspended        int
	ReviewedToday    int
	ByStatus         map[srs.Status]int
	// Accuracy is the percentage of passing reviews over all reviews, 0 without reviews.
	Accuracy         float64
	CurrentStreak    int
	LongestStreak    int
	ExperiencePoints int
	Coins            int
}

func newStudyProfile(user *store.User) *StudyProfile {
	return &StudyProfile{
		UserID:           user.ID,
		FrequencyMode:    user.FrequencyMode,
		Timezone:         user.Timezone,
		CurrentStreak:    user.CurrentStreak,
		LongestStreak:    user.LongestStreak,
		LastStudyDate:    user.LastStudyDate,
		ExperiencePoints: user.ExperiencePoints,
		Coins:            user.Coins,
	}
}
