package review

import (
	"context"

	"github.com/hrygo/studydeck/store"
)

// Store is the persistence capability the review service depends on.
// *store.Store satisfies it through NewStore.
type Store interface {
	GetCard(ctx context.Context, find *store.FindCard) (*store.Card, error)
	ListCards(ctx context.Context, find *store.FindCard) ([]*store.Card, error)
	UpdateCard(ctx context.Context, update *store.UpdateCard) (*store.Card, error)
	GetCardStats(ctx context.Context, find *store.FindCardStats) (*store.CardStats, error)

	GetUser(ctx context.Context, find *store.FindUser) (*store.User, error)
	UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error)

	CreateReviewLog(ctx context.Context, create *store.ReviewLog) (*store.ReviewLog, error)
	CountReviewLogs(ctx context.Context, find *store.FindReviewLog) (int, error)

	// RunInTx runs fn against a Store bound to one transaction.
	RunInTx(ctx context.Context, fn func(tx Store) error) error
}

type dbStore struct {
	*store.Store
}

// NewStore adapts a *store.Store to the Store interface.
func NewStore(s *store.Store) Store {
	return dbStore{Store: s}
}

func (s dbStore) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	return s.Store.RunInTx(ctx, func(tx *store.Store) error {
		return fn(dbStore{Store: tx})
	})
}
