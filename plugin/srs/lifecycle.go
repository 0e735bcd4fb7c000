package srs

import "fmt"

// Status is the lifecycle stage of a card.
type Status string

const (
	StatusNew       Status = "new"
	StatusLearning  Status = "learning"
	StatusReviewing Status = "reviewing"
	StatusMastered  Status = "mastered"
)

const (
	// ReviewingRepetitions is the streak of passing reviews that moves a card to reviewing.
	ReviewingRepetitions = 3
	// MasteredRepetitions is the streak of passing reviews required for mastery.
	MasteredRepetitions = 10
	// MasteredEaseFactor is the minimum ease factor required for mastery.
	MasteredEaseFactor = 2.3
)

// ParseStatus parses the stored string form of a status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusNew, StatusLearning, StatusReviewing, StatusMastered:
		return st, nil
	}
	return "", fmt.Errorf("unknown card status %q", s)
}

// DeriveStatus computes a card's status from its counters and scheduling state.
// A card that was never reviewed is new. Otherwise mastery requires a long
// passing streak and a high ease factor, reviewing requires a short passing
// streak, and everything else (including any card whose streak was just reset
// by a failure) is learning.
func DeriveStatus(timesReviewed, repetitions int, easeFactor float64) Status {
	switch {
	case timesReviewed == 0:
		return StatusNew
	case repetitions >= MasteredRepetitions && easeFactor >= MasteredEaseFactor:
		return StatusMastered
	case repetitions >= ReviewingRepetitions:
		return StatusReviewing
	default:
		return StatusLearning
	}
}

// Counters are the cumulative review statistics of a card.
type Counters struct {
	TimesReviewed  int
	TimesCorrect   int
	TimesIncorrect int
	// AverageResponseTime in seconds; nil until the first timed review.
	AverageResponseTime *float64
}

// AdvanceLifecycle folds one review into the card's counters and returns the
// counters together with the status derived from the new schedule.
// A nil responseTime leaves the average untouched.
func AdvanceLifecycle(prev Counters, sched Schedule, quality Quality, responseTime *float64) (Counters, Status) {
	next := prev
	next.TimesReviewed++
	if quality.clamp().IsPass() {
		next.TimesCorrect++
	} else {
		next.TimesIncorrect++
	}

	if responseTime != nil {
		avg := *responseTime
		if prev.AverageResponseTime != nil {
			avg = (*prev.AverageResponseTime + *responseTime) / 2
		}
		next.AverageResponseTime = &avg
	}

	return next, DeriveStatus(next.TimesReviewed, sched.Repetitions, sched.EaseFactor)
}
