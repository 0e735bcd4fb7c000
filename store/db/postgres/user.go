package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/studydeck/plugin/srs"
	"github.com/hrygo/studydeck/store"
)

const userColumns = `id, created_ts, updated_ts, row_version, username, frequency_mode, timezone,
	current_streak, longest_streak, last_study_date, experience_points, coins`

func scanUser(row scanner) (*store.User, error) {
	var user store.User
	var frequencyMode string
	var lastStudyDate sql.NullString
	if err := row.Scan(
		&user.ID,
		&user.CreatedTs,
		&user.UpdatedTs,
		&user.RowVersion,
		&user.Username,
		&frequencyMode,
		&user.Timezone,
		&user.CurrentStreak,
		&user.LongestStreak,
		&lastStudyDate,
		&user.ExperiencePoints,
		&user.Coins,
	); err != nil {
		return nil, err
	}

	mode, err := srs.ParseFrequencyMode(frequencyMode)
	if err != nil {
		return nil, errors.Wrapf(err, "user %d", user.ID)
	}
	user.FrequencyMode = mode
	user.LastStudyDate = lastStudyDate.String
	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (d *DB) CreateUser(ctx context.Context, create *store.User) (*store.User, error) {
	fields := []string{"username", "frequency_mode", "timezone"}
	args := []any{create.Username, create.FrequencyMode.String(), create.Timezone}
	if create.CreatedTs != 0 {
		fields, args = append(fields, "created_ts", "updated_ts"), append(args, create.CreatedTs, create.CreatedTs)
	}

	stmt := `INSERT INTO "user" (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING ` + userColumns
	user, err := scanUser(d.q.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}
	return user, nil
}

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Username; v != nil {
		where, args = append(where, "username = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT ` + userColumns + ` FROM "user" WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id ASC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query users")
	}
	defer rows.Close()

	list := make([]*store.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan user")
		}
		list = append(list, user)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate users")
	}
	return list, nil
}

func (d *DB) UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error) {
	updatedTs := time.Now().Unix()
	if update.UpdatedTs != nil {
		updatedTs = *update.UpdatedTs
	}
	set, args := []string{"row_version = row_version + 1", "updated_ts = " + placeholder(1)}, []any{updatedTs}

	if v := update.FrequencyMode; v != nil {
		set, args = append(set, "frequency_mode = "+placeholder(len(args)+1)), append(args, v.String())
	}
	if v := update.Timezone; v != nil {
		set, args = append(set, "timezone = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.CurrentStreak; v != nil {
		set, args = append(set, "current_streak = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.LongestStreak; v != nil {
		set, args = append(set, "longest_streak = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.LastStudyDate; v != nil {
		set, args = append(set, "last_study_date = "+placeholder(len(args)+1)), append(args, nullString(*v))
	}
	if v := update.ExperiencePoints; v != nil {
		set, args = append(set, "experience_points = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Coins; v != nil {
		set, args = append(set, "coins = "+placeholder(len(args)+1)), append(args, *v)
	}

	where := []string{"id = " + placeholder(len(args)+1)}
	args = append(args, update.ID)
	if v := update.ExpectedVersion; v != nil {
		where, args = append(where, "row_version = "+placeholder(len(args)+1)), append(args, *v)
	}

	stmt := `UPDATE "user" SET ` + strings.Join(set, ", ") + ` WHERE ` + strings.Join(where, " AND ") + ` RETURNING ` + userColumns
	user, err := scanUser(d.q.QueryRowContext(ctx, stmt, args...))
	if errors.Is(err, sql.ErrNoRows) {
		if update.ExpectedVersion != nil {
			return nil, d.userMissOrConflict(ctx, update.ID)
		}
		return nil, errors.Wrapf(store.ErrNotFound, "user %d", update.ID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to update user")
	}
	return user, nil
}

func (d *DB) userMissOrConflict(ctx context.Context, id int32) error {
	var exists bool
	if err := d.q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM \"user\" WHERE id = "+placeholder(1)+")", id).Scan(&exists); err != nil {
		return errors.Wrap(err, "failed to check user")
	}
	if !exists {
		return errors.Wrapf(store.ErrNotFound, "user %d", id)
	}
	return errors.Wrapf(store.ErrVersionConflict, "user %d", id)
}

func (d *DB) DeleteUser(ctx context.Context, delete *store.DeleteUser) error {
	result, err := d.q.ExecContext(ctx, "DELETE FROM \"user\" WHERE id = "+placeholder(1), delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete user")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return errors.Wrapf(store.ErrNotFound, "user %d", delete.ID)
	}
	return nil
}
