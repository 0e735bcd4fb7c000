package mysql

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

const cardColumns = "`id`, `uid`, `creator_id`, `created_ts`, `updated_ts`, `row_version`, " +
	"`course_id`, `question`, `answer`, `hint`, " +
	"`ease_factor`, `interval_days`, `repetitions`, `next_review_ts`, `last_review_ts`, `status`, " +
	"`is_active`, `is_suspended`, `times_reviewed`, `times_correct`, `times_incorrect`, `average_response_time`"

func scanCard(row scanner) (*store.Card, error) {
	var card store.Card
	var creatorID sql.NullInt32
	var lastReviewTs sql.NullInt64
	var averageResponseTime sql.NullFloat64
	var status string
	if err := row.Scan(
		&card.ID,
		&card.UID,
		&creatorID,
		&card.CreatedTs,
		&card.UpdatedTs,
		&card.RowVersion,
		&card.CourseID,
		&card.Question,
		&card.Answer,
		&card.Hint,
		&card.EaseFactor,
		&card.IntervalDays,
		&card.Repetitions,
		&card.NextReviewTs,
		&lastReviewTs,
		&status,
		&card.IsActive,
		&card.IsSuspended,
		&card.TimesReviewed,
		&card.TimesCorrect,
		&card.TimesIncorrect,
		&averageResponseTime,
	); err != nil {
		return nil, err
	}

	if creatorID.Valid {
		card.CreatorID = &creatorID.Int32
	}
	if lastReviewTs.Valid {
		card.LastReviewTs = &lastReviewTs.Int64
	}
	if averageResponseTime.Valid {
		card.AverageResponseTime = &averageResponseTime.Float64
	}
	card.Status = srs.Status(status)
	return &card, nil
}

func (d *DB) getCard(ctx context.Context, id int32) (*store.Card, error) {
	card, err := scanCard(d.q.QueryRowContext(ctx, "SELECT "+cardColumns+" FROM `card` WHERE `id` = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(store.ErrNotFound, "card %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get card")
	}
	return card, nil
}

func (d *DB) CreateCard(ctx context.Context, create *store.Card) (*store.Card, error) {
	now := create.CreatedTs
	if now == 0 {
		now = time.Now().Unix()
	}
	fields := []string{
		"`uid`", "`creator_id`", "`course_id`", "`question`", "`answer`", "`hint`",
		"`ease_factor`", "`interval_days`", "`repetitions`", "`next_review_ts`", "`status`",
		"`is_active`", "`is_suspended`", "`created_ts`", "`updated_ts`",
	}
	args := []any{
		create.UID, create.CreatorID, create.CourseID, create.Question, create.Answer, create.Hint,
		create.EaseFactor, create.IntervalDays, create.Repetitions, create.NextReviewTs, string(create.Status),
		create.IsActive, create.IsSuspended, now, now,
	}

	stmt := "INSERT INTO `card` (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ")"
	result, err := d.q.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create card")
	}
	id, err := lastInsertID(result)
	if err != nil {
		return nil, err
	}
	return d.getCard(ctx, id)
}

func (d *DB) ListCards(ctx context.Context, find *store.FindCard) ([]*store.Card, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "`id` = ?"), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "`uid` = ?"), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "`creator_id` = ?"), append(args, *v)
	}
	if v := find.CourseID; v != nil {
		where, args = append(where, "`course_id` = ?"), append(args, *v)
	}
	if v := find.IsActive; v != nil {
		where, args = append(where, "`is_active` = ?"), append(args, *v)
	}
	if v := find.IsSuspended; v != nil {
		where, args = append(where, "`is_suspended` = ?"), append(args, *v)
	}
	if v := find.DueBefore; v != nil {
		where, args = append(where, "`next_review_ts` <= ?"), append(args, *v)
	}

	query := "SELECT " + cardColumns + " FROM `card` WHERE " + strings.Join(where, " AND ") + " ORDER BY `next_review_ts` ASC, `id` ASC"
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query cards")
	}
	defer rows.Close()

	list := make([]*store.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan card")
		}
		list = append(list, card)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate cards")
	}
	return list, nil
}

func (d *DB) UpdateCard(ctx context.Context, update *store.UpdateCard) (*store.Card, error) {
	updatedTs := time.Now().Unix()
	if update.UpdatedTs != nil {
		updatedTs = *update.UpdatedTs
	}
	set, args := []string{"`row_version` = `row_version` + 1", "`updated_ts` = ?"}, []any{updatedTs}

	if v := update.EaseFactor; v != nil {
		set, args = append(set, "`ease_factor` = ?"), append(args, *v)
	}
	if v := update.IntervalDays; v != nil {
		set, args = append(set, "`interval_days` = ?"), append(args, *v)
	}
	if v := update.Repetitions; v != nil {
		set, args = append(set, "`repetitions` = ?"), append(args, *v)
	}
	if v := update.NextReviewTs; v != nil {
		set, args = append(set, "`next_review_ts` = ?"), append(args, *v)
	}
	if v := update.LastReviewTs; v != nil {
		set, args = append(set, "`last_review_ts` = ?"), append(args, *v)
	}
	if v := update.Status; v != nil {
		set, args = append(set, "`status` = ?"), append(args, string(*v))
	}
	if v := update.IsActive; v != nil {
		set, args = append(set, "`is_active` = ?"), append(args, *v)
	}
	if v := update.IsSuspended; v != nil {
		set, args = append(set, "`is_suspended` = ?"), append(args, *v)
	}
	if v := update.TimesReviewed; v != nil {
		set, args = append(set, "`times_reviewed` = ?"), append(args, *v)
	}
	if v := update.TimesCorrect; v != nil {
		set, args = append(set, "`times_correct` = ?"), append(args, *v)
	}
	if v := update.TimesIncorrect; v != nil {
		set, args = append(set, "`times_incorrect` = ?"), append(args, *v)
	}
	if v := update.AverageResponseTime; v != nil {
		set, args = append(set, "`average_response_time` = ?"), append(args, *v)
	}

	where := []string{"`id` = ?"}
	args = append(args, update.ID)
	if v := update.ExpectedVersion; v != nil {
		where, args = append(where, "`row_version` = ?"), append(args, *v)
	}

	stmt := "UPDATE `card` SET " + strings.Join(set, ", ") + " WHERE " + strings.Join(where, " AND ")
	result, err := d.q.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update card")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		if update.ExpectedVersion != nil {
			return nil, d.missOrConflict(ctx, "card", update.ID)
		}
		return nil, errors.Wrapf(store.ErrNotFound, "card %d", update.ID)
	}
	return d.getCard(ctx, update.ID)
}

func (d *DB) DeleteCard(ctx context.Context, delete *store.DeleteCard) error {
	result, err := d.q.ExecContext(ctx, "DELETE FROM `card` WHERE `id` = ?", delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete card")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return errors.Wrapf(store.ErrNotFound, "card %d", delete.ID)
	}
	return nil
}

func (d *DB) GetCardStats(ctx context.Context, find *store.FindCardStats) (*store.CardStats, error) {
	query := "SELECT `status`, COUNT(*), " +
		"COALESCE(SUM(CASE WHEN NOT `is_suspended` AND `next_review_ts` <= ? THEN 1 ELSE 0 END), 0), " +
		"COALESCE(SUM(CASE WHEN `is_suspended` THEN 1 ELSE 0 END), 0), " +
		"COALESCE(SUM(`times_reviewed`), 0), COALESCE(SUM(`times_correct`), 0) " +
		"FROM `card` WHERE `creator_id` = ? AND `is_active` = ? GROUP BY `status`"
	rows, err := d.q.QueryContext(ctx, query, find.DueBefore, find.CreatorID, true)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query card stats")
	}
	defer rows.Close()

	stats := &store.CardStats{ByStatus: map[srs.Status]int{}}
	for rows.Next() {
		var status string
		var total, due, suspended, reviewed, correct int
		if err := rows.Scan(&status, &total, &due, &suspended, &reviewed, &correct); err != nil {
			return nil, errors.Wrap(err, "failed to scan card stats")
		}
		stats.ByStatus[srs.Status(status)] = total
		stats.Total += total
		stats.Due += due
		stats.Suspended += suspended
		stats.TimesReviewed += reviewed
		stats.TimesCorrect += correct
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate card stats")
	}
	return stats, nil
}
