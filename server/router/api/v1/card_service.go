package v1

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/studydeck/plugin/progression"
	apperrors "github.com/hrygo/studydeck/server/internal/errors"
	"github.com/hrygo/studydeck/server/service/review"
	"github.com/hrygo/studydeck/store"
)

// Card is the wire form of a learner's card.
type Card struct {
	ID                  int32      `json:"id"`
	UID                 string     `json:"uid"`
	CourseID            int32      `json:"courseId"`
	Question            string     `json:"question"`
	Answer              string     `json:"answer"`
	Hint                string     `json:"hint,omitempty"`
	EaseFactor          float64    `json:"easeFactor"`
	Interval            int        `json:"interval"`
	Repetitions         int        `json:"repetitions"`
	NextReviewDate      time.Time  `json:"nextReviewDate"`
	LastReviewDate      *time.Time `json:"lastReviewDate,omitempty"`
	Status              string     `json:"status"`
	IsActive            bool       `json:"isActive"`
	IsSuspended         bool       `json:"isSuspended"`
	TimesReviewed       int        `json:"timesReviewed"`
	TimesCorrect        int        `json:"timesCorrect"`
	TimesIncorrect      int        `json:"timesIncorrect"`
	AverageResponseTime *float64   `json:"averageResponseTime,omitempty"`
}

type Reward struct {
	XP               int  `json:"xp"`
	Coins            int  `json:"coins"`
	CurrentStreak    int  `json:"currentStreak"`
	LongestStreak    int  `json:"longestStreak"`
	StreakExtended   bool `json:"streakExtended"`
	FirstReviewToday bool `json:"firstReviewToday"`
}

type ReviewCardRequest struct {
	Quality int `json:"quality" validate:"required,min=1,max=4"`
	// ResponseTime is in seconds.
	ResponseTime *float64 `json:"responseTime" validate:"omitempty,gte=0"`
}

type ReviewCardResponse struct {
	Card       *Card     `json:"card"`
	NextReview time.Time `json:"nextReview"`
	Interval   int       `json:"interval"`
	Reward     Reward    `json:"reward"`
}

type CardResponse struct {
	Card *Card `json:"card"`
}

type ListDueCardsResponse struct {
	Cards []*Card `json:"cards"`
	Count int     `json:"count"`
}

// ReviewCard submits one review.
// POST /api/v1/cards/:id/review
func (s *APIV1Service) ReviewCard(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	cardID, err := parseCardID(c)
	if err != nil {
		return err
	}
	req := &ReviewCardRequest{}
	if err := bindAndValidate(c, req); err != nil {
		return err
	}

	result, err := s.ReviewService.SubmitReview(c.Request().Context(), userID, cardID, req.Quality, req.ResponseTime)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &ReviewCardResponse{
		Card:       convertCardFromStore(result.Card),
		NextReview: result.NextReview.UTC(),
		Interval:   result.Interval,
		Reward:     convertReward(result.Reward),
	})
}

// SkipCard postpones a card by an hour.
// POST /api/v1/cards/:id/skip
func (s *APIV1Service) SkipCard(c echo.Context) error {
	return s.updateCard(c, s.ReviewService.SkipCard)
}

// POST /api/v1/cards/:id/suspend
func (s *APIV1Service) SuspendCard(c echo.Context) error {
	return s.updateCard(c, s.ReviewService.SuspendCard)
}

// POST /api/v1/cards/:id/resume
func (s *APIV1Service) ResumeCard(c echo.Context) error {
	return s.updateCard(c, s.ReviewService.ResumeCard)
}

func (s *APIV1Service) updateCard(c echo.Context, update func(ctx context.Context, userID, cardID int32) (*store.Card, error)) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	cardID, err := parseCardID(c)
	if err != nil {
		return err
	}
	card, err := update(c.Request().Context(), userID, cardID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &CardResponse{Card: convertCardFromStore(card)})
}

// ListDueCards returns the cards due now.
// GET /api/v1/cards/due?courseId=&limit=
func (s *APIV1Service) ListDueCards(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	filter := review.DueFilter{}
	if v := c.QueryParam("courseId"); v != "" {
		courseID, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return apperrors.InvalidArgument("invalid courseId %q", v)
		}
		id := int32(courseID)
		filter.CourseID = &id
	}
	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.InvalidArgument("invalid limit %q", v)
		}
		filter.Limit = limit
	}

	cards, err := s.ReviewService.DueCards(c.Request().Context(), userID, filter)
	if err != nil {
		return err
	}
	resp := &ListDueCardsResponse{Cards: make([]*Card, 0, len(cards)), Count: len(cards)}
	for _, card := range cards {
		resp.Cards = append(resp.Cards, convertCardFromStore(card))
	}
	return c.JSON(http.StatusOK, resp)
}

func parseCardID(c echo.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidArgument("invalid card id %q", c.Param("id"))
	}
	return int32(id), nil
}

func convertCardFromStore(card *store.Card) *Card {
	result := &Card{
		ID:                  card.ID,
		UID:                 card.UID,
		CourseID:            card.CourseID,
		Question:            card.Question,
		Answer:              card.Answer,
		Hint:                card.Hint,
		EaseFactor:          card.EaseFactor,
		Interval:            card.IntervalDays,
		Repetitions:         card.Repetitions,
		NextReviewDate:      card.NextReviewTime().UTC(),
		Status:              string(card.Status),
		IsActive:            card.IsActive,
		IsSuspended:         card.IsSuspended,
		TimesReviewed:       card.TimesReviewed,
		TimesCorrect:        card.TimesCorrect,
		TimesIncorrect:      card.TimesIncorrect,
		AverageResponseTime: card.AverageResponseTime,
	}
	if card.LastReviewTs != nil {
		last := time.Unix(*card.LastReviewTs, 0).UTC()
		result.LastReviewDate = &last
	}
	return result
}

func convertReward(reward progression.Reward) Reward {
	return Reward{
		XP:               reward.XP,
		Coins:            reward.Coins,
		CurrentStreak:    reward.CurrentStreak,
		LongestStreak:    reward.LongestStreak,
		StreakExtended:   reward.StreakExtended,
		FirstReviewToday: reward.FirstReviewToday,
	}
}
