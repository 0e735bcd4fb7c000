package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/studydeck/server/service/review"
)

type StudyProfile struct {
	FrequencyMode    string `json:"frequencyMode"`
	Timezone         string `json:"timezone"`
	CurrentStreak    int    `json:"currentStreak"`
	LongestStreak    int    `json:"longestStreak"`
	LastStudyDate    string `json:"lastStudyDate,omitempty"`
	ExperiencePoints int    `json:"experiencePoints"`
	Coins            int    `json:"coins"`
}

type UpdateStudyProfileRequest struct {
	FrequencyMode *string `json:"frequencyMode" validate:"omitempty,oneof=intensive normal relaxed"`
	Timezone      *string `json:"timezone" validate:"omitempty,timezone"`
}

// GET /api/v1/users/me/study-profile
func (s *APIV1Service) GetStudyProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	profile, err := s.ReviewService.GetStudyProfile(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertStudyProfile(profile))
}

// UpdateStudyProfile changes the frequency mode or timezone. Omitted fields are kept.
// PUT /api/v1/users/me/study-profile
func (s *APIV1Service) UpdateStudyProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	req := &UpdateStudyProfileRequest{}
	if err := bindAndValidate(c, req); err != nil {
		return err
	}
	profile, err := s.ReviewService.UpdateStudyProfile(c.Request().Context(), userID, review.UpdateStudyProfile{
		FrequencyMode: req.FrequencyMode,
		Timezone:      req.Timezone,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertStudyProfile(profile))
}

func convertStudyProfile(profile *review.StudyProfile) *StudyProfile {
	return &StudyProfile{
		FrequencyMode:    profile.FrequencyMode.String(),
		Timezone:         profile.Timezone,
		CurrentStreak:    profile.CurrentStreak,
		LongestStreak:    profile.LongestStreak,
		LastStudyDate:    profile.LastStudyDate,
		ExperiencePoints: profile.ExperiencePoints,
		Coins:            profile.Coins,
	}
}
