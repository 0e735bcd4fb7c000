package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/studydeck/internal/profile"
	"github.com/hrygo/studydeck/store"
	"github.com/hrygo/studydeck/store/db/mysql"
	"github.com/hrygo/studydeck/store/db/postgres"
	"github.com/hrygo/studydeck/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// SQLite is the default for development and single-user installs. PostgreSQL
// and MySQL share the same schema and are meant for multi-instance deployments.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	case "mysql":
		driver, err = mysql.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
