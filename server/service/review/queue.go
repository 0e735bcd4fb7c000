package review

import (
	"context"
	"log/slog"

	apperrors "github.com/hrygo/studydeck/server/internal/errors"
	"github.com/hrygo/studydeck/server/internal/observability"
	"github.com/hrygo/studydeck/store"
)

// DueCards returns the learner's active, unsuspended cards whose next review
// is due, oldest due first and then in creation order.
func (s *Service) DueCards(ctx context.Context, userID int32, filter DueFilter) ([]*store.Card, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultDueLimit
	}
	if limit > MaxDueLimit {
		limit = MaxDueLimit
	}

	active, suspended := true, false
	dueBefore := s.now().Unix()
	cards, err := s.store.ListCards(ctx, &store.FindCard{
		CreatorID:   &userID,
		CourseID:    filter.CourseID,
		IsActive:    &active,
		IsSuspended: &suspended,
		DueBefore:   &dueBefore,
		Limit:       &limit,
	})
	if err != nil {
		return nil, toServiceError(err, "failed to list due cards")
	}
	return cards, nil
}

// SkipCard pushes a card back by SkipDelay without touching its learning state.
func (s *Service) SkipCard(ctx context.Context, userID, cardID int32) (*store.Card, error) {
	card, err := s.updateOwnedCard(ctx, "card.skip", userID, cardID, func(*store.Card) *store.UpdateCard {
		nextReviewTs := s.now().Add(SkipDelay).Unix()
		return &store.UpdateCard{NextReviewTs: &nextReviewTs}
	})
	if err != nil {
		return nil, err
	}
	observability.LoggerFromContext(ctx).Info("card skipped", slog.Int(observability.LogFieldCardID, int(cardID)))
	return card, nil
}

// SuspendCard removes a card from the due queue until it is resumed.
func (s *Service) SuspendCard(ctx context.Context, userID, cardID int32) (*store.Card, error) {
	return s.setSuspended(ctx, userID, cardID, true)
}

// ResumeCard puts a suspended card back into the due queue.
func (s *Service) ResumeCard(ctx context.Context, userID, cardID int32) (*store.Card, error) {
	return s.setSuspended(ctx, userID, cardID, false)
}

func (s *Service) setSuspended(ctx context.Context, userID, cardID int32, suspended bool) (*store.Card, error) {
	operation := "card.resume"
	if suspended {
		operation = "card.suspend"
	}
	return s.updateOwnedCard(ctx, operation, userID, cardID, func(card *store.Card) *store.UpdateCard {
		if card.IsSuspended == suspended {
			return nil
		}
		return &store.UpdateCard{IsSuspended: &suspended}
	})
}

// updateOwnedCard applies the update built by build to a card owned by userID.
// A nil update leaves the card as it is.
func (s *Service) updateOwnedCard(ctx context.Context, operation string, userID, cardID int32, build func(card *store.Card) *store.UpdateCard) (*store.Card, error) {
	var result *store.Card
	err := s.withRetry(ctx, operation, func() error {
		card, err := s.store.GetCard(ctx, &store.FindCard{ID: &cardID, CreatorID: &userID})
		if err != nil {
			if store.IsNotFound(err) {
				return apperrors.NotFound("card %d not found", cardID)
			}
			return err
		}

		update := build(card)
		if update == nil {
			result = card
			return nil
		}
		updatedTs := s.now().Unix()
		update.ID = card.ID
		update.ExpectedVersion = &card.RowVersion
		update.UpdatedTs = &updatedTs
		result, err = s.store.UpdateCard(ctx, update)
		return err
	})
	if err != nil {
		return nil, toServiceError(err, "failed to update card")
	}
	return result, nil
}
