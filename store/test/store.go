package test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hrygo/studydeck/internal/profile"
	"github.com/hrygo/studydeck/internal/version"
	"github.com/hrygo/studydeck/store"
	"github.com/hrygo/studydeck/store/db"
)

// NewTestingStore creates a migrated store backed by a fresh database.
// SQLite is used unless DRIVER selects postgres or mysql.
func NewTestingStore(ctx context.Context, t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	profile := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(profile)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	ts := store.New(dbDriver, profile, opts...)
	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		_ = ts.Close()
	})
	return ts
}

func getTestingProfile(t *testing.T) *profile.Profile {
	mode := "prod"
	driver := getDriverFromEnv()
	p := &profile.Profile{
		Mode:     mode,
		Data:     t.TempDir(),
		Driver:   driver,
		Version:  version.GetCurrentVersion(mode),
		Timezone: "UTC",
		Secret:   "test-secret",
		CacheTTL: time.Minute,
	}

	switch driver {
	case "postgres":
		p.DSN = GetPostgresDSN(t)
	case "mysql":
		p.DSN = os.Getenv("MYSQL_TEST_DSN")
		if p.DSN == "" {
			t.Skip("MYSQL_TEST_DSN is not set")
		}
	default:
		p.DSN = fmt.Sprintf("%s/studydeck_test.db", p.Data)
	}
	return p
}

func getDriverFromEnv() string {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}

func createTestingUser(ctx context.Context, ts *store.Store, username string) (*store.User, error) {
	return ts.CreateUser(ctx, &store.User{
		Username: username,
		Timezone: "UTC",
	})
}
