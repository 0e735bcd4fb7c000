package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/hrygo/studydeck/internal/profile"
	"github.com/hrygo/studydeck/store"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type DB struct {
	db      *sql.DB
	q       querier
	inTx    bool
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	config, err := mysql.ParseDSN(profile.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse dsn")
	}
	// Timestamps are stored as unix seconds; keep the session in UTC.
	config.Loc = time.UTC
	config.MultiStatements = false

	connector, err := mysql.NewConnector(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create connector")
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{db: db, q: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = 'card' AND table_type = 'BASE TABLE')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

func (d *DB) WithTx(ctx context.Context, fn func(store.Driver) error) error {
	if d.inTx {
		return fn(d)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	if err := fn(&DB{db: d.db, q: tx, inTx: true, profile: d.profile}); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

// lastInsertID returns the id generated by an INSERT.
func lastInsertID(result sql.Result) (int32, error) {
	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get last insert id")
	}
	return int32(id), nil
}

// missOrConflict tells a missing row apart from a stale row version after an
// optimistic update matched nothing.
func (d *DB) missOrConflict(ctx context.Context, table string, id int32) error {
	var exists bool
	if err := d.q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM `"+table+"` WHERE `id` = ?)", id).Scan(&exists); err != nil {
		return errors.Wrapf(err, "failed to check %s", table)
	}
	if !exists {
		return errors.Wrapf(store.ErrNotFound, "%s %d", table, id)
	}
	return errors.Wrapf(store.ErrVersionConflict, "%s %d", table, id)
}
