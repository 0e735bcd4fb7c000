package review

import (
	"context"

	"github.com/hrygo/studydeck/plugin/srs"
	apperrors "github.com/hrygo/studydeck/server/internal/errors"
	"github.com/hrygo/studydeck/server/timezone"
	"github.com/hrygo/studydeck/store"
)

// GetStudyProfile returns the learner's frequency mode, zone and progress.
func (s *Service) GetStudyProfile(ctx context.Context, userID int32) (*StudyProfile, error) {
	user, err := s.store.GetUser(ctx, &store.FindUser{ID: &userID})
	if err != nil {
		return nil, toServiceError(err, "failed to get study profile")
	}
	return newStudyProfile(user), nil
}

// UpdateStudyProfile changes the learner's frequency mode and zone.
// The new frequency mode applies from the next review on.
func (s *Service) UpdateStudyProfile(ctx context.Context, userID int32, update UpdateStudyProfile) (*StudyProfile, error) {
	patch := &store.UpdateUser{ID: userID}
	if v := update.FrequencyMode; v != nil {
		mode, err := srs.ParseFrequencyMode(*v)
		if err != nil {
			return nil, apperrors.InvalidArgument("%s", err.Error())
		}
		patch.FrequencyMode = &mode
	}
	if v := update.Timezone; v != nil {
		if !timezone.IsValidTimezone(*v) {
			return nil, apperrors.InvalidArgument("invalid timezone %q", *v)
		}
		patch.Timezone = v
	}

	var user *store.User
	err := s.withRetry(ctx, "profile.update", func() error {
		current, err := s.store.GetUser(ctx, &store.FindUser{ID: &userID})
		if err != nil {
			return err
		}
		if patch.FrequencyMode == nil && patch.Timezone == nil {
			user = current
			return nil
		}
		updatedTs := s.now().Unix()
		patch.ExpectedVersion = &current.RowVersion
		patch.UpdatedTs = &updatedTs
		user, err = s.store.UpdateUser(ctx, patch)
		return err
	})
	if err != nil {
		return nil, toServiceError(err, "failed to update study profile")
	}
	return newStudyProfile(user), nil
}
