package srs

import (
	"math"
	"time"
)

// ComputeNextSchedule applies one review of the given quality to state.
//
// Passing reviews (Good, Easy) walk the first/second interval ladder of the
// profile and then grow by ease factor and multiplier. Failing reviews reset
// repetitions and fall back to the first interval. The ease factor is adjusted
// on every review with the SM-2 formula, rescaled for a 1..4 quality range.
//
// The interval growth uses the ease factor as it was before this review.
func ComputeNextSchedule(state State, quality Quality, profile FrequencyProfile, now time.Time) Schedule {
	q := quality.clamp()

	interval := state.Interval
	reps := state.Repetitions
	if q.IsPass() {
		switch reps {
		case 0:
			interval = profile.FirstInterval
		case 1:
			interval = profile.SecondInterval
		default:
			interval = int(math.Round(float64(state.Interval) * state.EaseFactor * profile.Multiplier))
			if interval < 1 {
				interval = 1
			}
		}
		reps++
	} else {
		reps = 0
		interval = profile.FirstInterval
	}

	return Schedule{
		EaseFactor:     nextEaseFactor(state.EaseFactor, q),
		Interval:       interval,
		Repetitions:    reps,
		NextReviewDate: now.AddDate(0, 0, interval),
		LastReviewDate: now,
	}
}

// nextEaseFactor computes EF' = EF + (0.1 - (4-q) * (0.08 + (4-q) * 0.02)),
// clamped to [MinEaseFactor, MaxEaseFactor] and rounded to 2 decimals.
func nextEaseFactor(ef float64, q Quality) float64 {
	d := float64(QualityEasy - q)
	ef += 0.1 - d*(0.08+d*0.02)
	ef = math.Round(ef*100) / 100
	return math.Max(MinEaseFactor, math.Min(MaxEaseFactor, ef))
}
