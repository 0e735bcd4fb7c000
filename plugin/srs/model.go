// Package srs implements the spaced repetition scheduling engine used for
// flashcard review: an SM-2 variant tuned per frequency mode, plus the card
// lifecycle derived from the scheduling state.
package srs

import (
	"fmt"
	"time"
)

// Quality represents the learner's assessment of recall for one card.
type Quality int

const (
	// QualityAgain - complete blackout, wrong response
	QualityAgain Quality = 1
	// QualityHard - correct but with serious difficulty
	QualityHard Quality = 2
	// QualityGood - correct with some hesitation
	QualityGood Quality = 3
	// QualityEasy - perfect response
	QualityEasy Quality = 4
)

var qualityNames = [...]string{
	QualityAgain: "again",
	QualityHard:  "hard",
	QualityGood:  "good",
	QualityEasy:  "easy",
}

// IsValid reports whether q is within Again..Easy.
func (q Quality) IsValid() bool {
	return q >= QualityAgain && q <= QualityEasy
}

// IsPass reports whether q counts as a successful recall.
func (q Quality) IsPass() bool {
	return q >= QualityGood
}

func (q Quality) String() string {
	if q.IsValid() {
		return qualityNames[q]
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// ParseQuality converts a raw submitted value into a Quality.
func ParseQuality(v int) (Quality, error) {
	q := Quality(v)
	if !q.IsValid() {
		return 0, fmt.Errorf("quality must be between %d and %d, got %d", QualityAgain, QualityEasy, v)
	}
	return q, nil
}

// clamp forces q into the valid range.
func (q Quality) clamp() Quality {
	if q < QualityAgain {
		return QualityAgain
	}
	if q > QualityEasy {
		return QualityEasy
	}
	return q
}

// DefaultEaseFactor is the initial ease factor for new cards.
const DefaultEaseFactor = 2.5

// MinEaseFactor is the minimum ease factor to prevent intervals from getting too short.
const MinEaseFactor = 1.3

// MaxEaseFactor caps how quickly intervals can grow.
const MaxEaseFactor = 2.5

// State is the scheduling state of a card before a review.
type State struct {
	EaseFactor  float64
	Interval    int // days
	Repetitions int
}

// NewState returns the scheduling defaults for a freshly created card.
func NewState() State {
	return State{EaseFactor: DefaultEaseFactor}
}

// Schedule is the result of applying one review to a State.
type Schedule struct {
	EaseFactor     float64
	Interval       int
	Repetitions    int
	NextReviewDate time.Time
	LastReviewDate time.Time
}

// State returns the scheduling portion of s, suitable as input to the next review.
func (s Schedule) State() State {
	return State{
		EaseFactor:  s.EaseFactor,
		Interval:    s.Interval,
		Repetitions: s.Repetitions,
	}
}
