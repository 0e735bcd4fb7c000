package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// WithTx runs fn with a driver bound to a single database transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	// Calling WithTx on a driver that is already bound reuses its transaction.
	WithTx(ctx context.Context, fn func(Driver) error) error

	// Card model related methods.
	CreateCard(ctx context.Context, create *Card) (*Card, error)
	ListCards(ctx context.Context, find *FindCard) ([]*Card, error)
	UpdateCard(ctx context.Context, update *UpdateCard) (*Card, error)
	DeleteCard(ctx context.Context, delete *DeleteCard) error
	GetCardStats(ctx context.Context, find *FindCardStats) (*CardStats, error)

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)
	UpdateUser(ctx context.Context, update *UpdateUser) (*User, error)
	DeleteUser(ctx context.Context, delete *DeleteUser) error

	// ReviewLog model related methods.
	CreateReviewLog(ctx context.Context, create *ReviewLog) (*ReviewLog, error)
	ListReviewLogs(ctx context.Context, find *FindReviewLog) ([]*ReviewLog, error)
	CountReviewLogs(ctx context.Context, find *FindReviewLog) (int, error)

	// SystemSetting model related methods.
	UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error)
	ListSystemSettings(ctx context.Context, find *FindSystemSetting) ([]*SystemSetting, error)
}
