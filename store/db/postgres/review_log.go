package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/studydeck/plugin/srs"
	"github.com/hrygo/studydeck/store"
)

const reviewLogColumns = `id, card_id, user_id, created_ts, quality, response_time, ease_factor, interval_days, repetitions, status`

func scanReviewLog(row scanner) (*store.ReviewLog, error) {
	var log store.ReviewLog
	var responseTime sql.NullFloat64
	var status string
	if err := row.Scan(
		&log.ID,
		&log.CardID,
		&log.UserID,
		&log.CreatedTs,
		&log.Quality,
		&responseTime,
		&log.EaseFactor,
		&log.IntervalDays,
		&log.Repetitions,
		&status,
	); err != nil {
		return nil, err
	}
	if responseTime.Valid {
		log.ResponseTime = &responseTime.Float64
	}
	log.Status = srs.Status(status)
	return &log, nil
}

func reviewLogWhere(find *store.FindReviewLog) ([]string, []any) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CardID; v != nil {
		where, args = append(where, "card_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatedTsAfter; v != nil {
		where, args = append(where, "created_ts >= "+placeholder(len(args)+1)), append(args, *v)
	}
	return where, args
}

func (d *DB) CreateReviewLog(ctx context.Context, create *store.ReviewLog) (*store.ReviewLog, error) {
	fields := []string{"card_id", "user_id", "quality", "response_time", "ease_factor", "interval_days", "repetitions", "status"}
	args := []any{create.CardID, create.UserID, int(create.Quality), create.ResponseTime, create.EaseFactor, create.IntervalDays, create.Repetitions, string(create.Status)}
	if create.CreatedTs != 0 {
		fields, args = append(fields, "created_ts"), append(args, create.CreatedTs)
	}

	stmt := `INSERT INTO review_log (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING ` + reviewLogColumns
	log, err := scanReviewLog(d.q.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create review log")
	}
	return log, nil
}

func (d *DB) ListReviewLogs(ctx context.Context, find *store.FindReviewLog) ([]*store.ReviewLog, error) {
	where, args := reviewLogWhere(find)
	query := `SELECT ` + reviewLogColumns + ` FROM review_log WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query review logs")
	}
	defer rows.Close()

	list := make([]*store.ReviewLog, 0)
	for rows.Next() {
		log, err := scanReviewLog(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan review log")
		}
		list = append(list, log)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate review logs")
	}
	return list, nil
}

func (d *DB) CountReviewLogs(ctx context.Context, find *store.FindReviewLog) (int, error) {
	where, args := reviewLogWhere(find)
	var count int
	if err := d.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM review_log WHERE `+strings.Join(where, " AND "), args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count review logs")
	}
	return count, nil
}
