package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type StatsResponse struct {
	TotalCards       int            `json:"totalCards"`
	DueNow           int            `json:"dueNow"`
	Suspended        int            `json:"suspended"`
	ReviewedToday    int            `json:"reviewedToday"`
	ByStatus         map[string]int `json:"byStatus"`
	Accuracy         float64        `json:"accuracy"`
	CurrentStreak    int            `json:"currentStreak"`
	LongestStreak    int            `json:"longestStreak"`
	ExperiencePoints int            `json:"experiencePoints"`
	Coins            int            `json:"coins"`
}

// GetStats returns the review statistics of the current learner.
// GET /api/v1/stats
func (s *APIV1Service) GetStats(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	stats, err := s.ReviewService.GetStats(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	return c.JSON(http.StatusOK, &StatsResponse{
		TotalCards:       stats.TotalCards,
		DueNow:           stats.DueNow,
		Suspended:        stats.Suspended,
		ReviewedToday:    stats.ReviewedToday,
		ByStatus:         byStatus,
		Accuracy:         stats.Accuracy,
		CurrentStreak:    stats.CurrentStreak,
		LongestStreak:    stats.LongestStreak,
		ExperiencePoints: stats.ExperiencePoints,
		Coins:            stats.Coins,
	})
}
