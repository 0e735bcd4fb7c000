package store

import (
	"context"

	"github.com/hrygo/studydeck/plugin/srs"
)

// ReviewLog records one submitted review and the schedule it produced.
type ReviewLog struct {
	ID        int32
	CardID    int32
	UserID    int32
	CreatedTs int64

	Quality      srs.Quality
	ResponseTime *float64
	EaseFactor   float64
	IntervalDays int
	Repetitions  int
	Status       srs.Status
}

type FindReviewLog struct {
	UserID *int32
	CardID *int32
	// CreatedTsAfter keeps logs created at or after the timestamp.
	CreatedTsAfter *int64
	Limit          *int
}

func (s *Store) CreateReviewLog(ctx context.Context, create *ReviewLog) (*ReviewLog, error) {
	return s.driver.CreateReviewLog(ctx, create)
}

// ListReviewLogs returns the newest logs first.
func (s *Store) ListReviewLogs(ctx context.Context, find *FindReviewLog) ([]*ReviewLog, error) {
	return s.driver.ListReviewLogs(ctx, find)
}

func (s *Store) CountReviewLogs(ctx context.Context, find *FindReviewLog) (int, error) {
	return s.driver.CountReviewLogs(ctx, find)
}
