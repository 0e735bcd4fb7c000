package store

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/studydeck/plugin/srs"
)

type Card struct {
	// ID is the system generated identifier; it grows with insertion order.
	ID int32
	// UID is the public identifier of the card.
	UID string

	// Standard fields
	// CreatorID is nil for template cards that belong to no learner.
	CreatorID *int32
	CreatedTs int64
	UpdatedTs int64
	// RowVersion grows by one on every update.
	RowVersion int64

	// Domain specific fields
	CourseID int32
	Question string
	Answer   string
	Hint     string

	// Scheduling state
	EaseFactor   float64
	IntervalDays int
	Repetitions  int
	NextReviewTs int64
	LastReviewTs *int64
	Status       srs.Status

	// Availability
	IsActive    bool
	IsSuspended bool

	// Review counters
	TimesReviewed       int
	TimesCorrect        int
	TimesIncorrect      int
	AverageResponseTime *float64
}

type FindCard struct {
	ID          *int32
	UID         *string
	CreatorID   *int32
	CourseID    *int32
	IsActive    *bool
	IsSuspended *bool
	// DueBefore keeps cards whose next review is at or before the timestamp.
	DueBefore *int64
	Limit     *int
	Offset    *int
}

type UpdateCard struct {
	ID int32
	// ExpectedVersion makes the update conditional on the current row version.
	ExpectedVersion *int64

	UpdatedTs           *int64
	EaseFactor          *float64
	IntervalDays        *int
	Repetitions         *int
	NextReviewTs        *int64
	LastReviewTs        *int64
	Status              *srs.Status
	IsActive            *bool
	IsSuspended         *bool
	TimesReviewed       *int
	TimesCorrect        *int
	TimesIncorrect      *int
	AverageResponseTime *float64
}

type DeleteCard struct {
	ID int32
}

// FindCardStats selects the active cards of one learner.
type FindCardStats struct {
	CreatorID int32
	// DueBefore is the timestamp used to count due cards.
	DueBefore int64
}

// CardStats aggregates the active cards of one learner.
type CardStats struct {
	Total         int
	Due           int
	Suspended     int
	TimesReviewed int
	TimesCorrect  int
	ByStatus      map[srs.Status]int
}

// SRSState returns the scheduling state the engine works on.
func (c *Card) SRSState() srs.State {
	return srs.State{
		EaseFactor:  c.EaseFactor,
		Interval:    c.IntervalDays,
		Repetitions: c.Repetitions,
	}
}

// Counters returns the review counters of the card.
func (c *Card) Counters() srs.Counters {
	return srs.Counters{
		TimesReviewed:       c.TimesReviewed,
		TimesCorrect:        c.TimesCorrect,
		TimesIncorrect:      c.TimesIncorrect,
		AverageResponseTime: c.AverageResponseTime,
	}
}

func (c *Card) NextReviewTime() time.Time {
	return time.Unix(c.NextReviewTs, 0)
}

// IsOwnedBy reports whether the card belongs to the given learner.
func (c *Card) IsOwnedBy(userID int32) bool {
	return c.CreatorID != nil && *c.CreatorID == userID
}

// CreateCard creates a card in the new state. Zero scheduling fields get their defaults.
func (s *Store) CreateCard(ctx context.Context, create *Card) (*Card, error) {
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	if create.EaseFactor == 0 {
		create.EaseFactor = srs.DefaultEaseFactor
	}
	if create.Status == "" {
		create.Status = srs.StatusNew
	}
	if create.NextReviewTs == 0 {
		create.NextReviewTs = time.Now().Unix()
	}
	create.IsActive = true
	return s.driver.CreateCard(ctx, create)
}

func (s *Store) ListCards(ctx context.Context, find *FindCard) ([]*Card, error) {
	return s.driver.ListCards(ctx, find)
}

// GetCard returns ErrNotFound when no card matches.
func (s *Store) GetCard(ctx context.Context, find *FindCard) (*Card, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.driver.ListCards(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

// UpdateCard returns ErrVersionConflict when ExpectedVersion no longer matches,
// and ErrNotFound when the card does not exist.
func (s *Store) UpdateCard(ctx context.Context, update *UpdateCard) (*Card, error) {
	if v := update.Status; v != nil {
		if _, err := srs.ParseStatus(string(*v)); err != nil {
			return nil, errors.Wrap(err, "invalid card status")
		}
	}
	return s.driver.UpdateCard(ctx, update)
}

func (s *Store) DeleteCard(ctx context.Context, delete *DeleteCard) error {
	return s.driver.DeleteCard(ctx, delete)
}

func (s *Store) GetCardStats(ctx context.Context, find *FindCardStats) (*CardStats, error) {
	return s.driver.GetCardStats(ctx, find)
}
