// Package sqlxrepos implements the schedule repository on postgres with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/cronograma/core/schedule"
	"github.com/trezcool/cronograma/core/week"
)

const uniqueViolation = "23505"

const (
	subjectColumns = "id, owner_id, code, name, order_index, created_at"
	eventColumns   = "id, owner_id, subject_id, title, type, date, end_date, weight_percent, created_at, updated_at"
)

type subjectRow struct {
	ID         string         `db:"id"`
	OwnerID    string         `db:"owner_id"`
	Code       string         `db:"code"`
	Name       sql.NullString `db:"name"`
	OrderIndex int            `db:"order_index"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (r subjectRow) subject() schedule.Subject {
	return schedule.Subject{
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		Code:       r.Code,
		Name:       r.Name.String,
		OrderIndex: r.OrderIndex,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

type eventRow struct {
	ID            string          `db:"id"`
	OwnerID       string          `db:"owner_id"`
	SubjectID     string          `db:"subject_id"`
	Title         string          `db:"title"`
	Type          string          `db:"type"`
	Date          week.Date       `db:"date"`
	EndDate       week.Date       `db:"end_date"`
	WeightPercent sql.NullFloat64 `db:"weight_percent"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func newEventRow(ev schedule.Event) eventRow {
	row := eventRow{
		ID:        ev.ID,
		OwnerID:   ev.OwnerID,
		SubjectID: ev.SubjectID,
		Title:     ev.Title,
		Type:      string(ev.Type),
		Date:      ev.Date,
		EndDate:   ev.End(),
		CreatedAt: ev.CreatedAt.UTC(),
		UpdatedAt: ev.UpdatedAt.UTC(),
	}
	if ev.WeightPercent != nil {
		row.WeightPercent = sql.NullFloat64{Float64: *ev.WeightPercent, Valid: true}
	}
	return row
}

func (r eventRow) event() schedule.Event {
	ev := schedule.Event{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		SubjectID: r.SubjectID,
		Title:     r.Title,
		Type:      schedule.EventType(r.Type),
		Date:      r.Date,
		EndDate:   r.EndDate,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.WeightPercent.Valid {
		w := r.WeightPercent.Float64
		ev.WeightPercent = &w
	}
	return ev
}

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

// NewScheduleRepository wraps a postgres *sql.DB.
func NewScheduleRepository(db *sql.DB) schedule.Repository {
	return &scheduleRepository{db: sqlx.NewDb(db, "postgres")}
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// validID filters out ids postgres would reject as uuid.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (repo *scheduleRepository) QuerySubjects(ctx context.Context, ownerID string) ([]schedule.Subject, error) {
	var rows []subjectRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+subjectColumns+` FROM uni_subjects WHERE owner_id = $1 ORDER BY order_index, code`, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]schedule.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, r.subject())
	}
	return subjects, nil
}

func (repo *scheduleRepository) CountSubjects(ctx context.Context, ownerID string) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM uni_subjects WHERE owner_id = $1`, ownerID); err != nil {
		return 0, errors.Wrap(err, "counting subjects")
	}
	return count, nil
}

func (repo *scheduleRepository) GetSubject(ctx context.Context, ownerID, id string) (schedule.Subject, error) {
	if !validID(id) {
		return schedule.Subject{}, schedule.ErrSubjectNotFound
	}
	var row subjectRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+subjectColumns+` FROM uni_subjects WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return schedule.Subject{}, schedule.ErrSubjectNotFound
		}
		return schedule.Subject{}, errors.Wrap(err, "finding subject")
	}
	return row.subject(), nil
}

func (repo *scheduleRepository) CheckSubjectCodeUniqueness(ctx context.Context, ownerID, code, excludedID string) error {
	query, args := `SELECT EXISTS (SELECT 1 FROM uni_subjects WHERE owner_id = $1 AND code = $2)`, []interface{}{ownerID, code}
	if validID(excludedID) {
		query = `SELECT EXISTS (SELECT 1 FROM uni_subjects WHERE owner_id = $1 AND code = $2 AND id <> $3)`
		args = append(args, excludedID)
	}
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking subject code")
	}
	if exists {
		return schedule.ErrSubjectCodeExists
	}
	return nil
}

func (repo *scheduleRepository) CreateSubjects(ctx context.Context, subjects ...schedule.Subject) ([]schedule.Subject, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	created := make([]schedule.Subject, 0, len(subjects))
	for _, sbj := range subjects {
		sbj.ID = uuid.New().String()
		var row subjectRow
		err := tx.GetContext(ctx, &row,
			`INSERT INTO uni_subjects (`+subjectColumns+`) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6) RETURNING `+subjectColumns,
			sbj.ID, sbj.OwnerID, sbj.Code, sbj.Name, sbj.OrderIndex, sbj.CreatedAt.UTC())
		if err != nil {
			if isUniqueViolation(err) {
				return nil, schedule.ErrSubjectCodeExists
			}
			return nil, errors.Wrap(err, "inserting subject")
		}
		created = append(created, row.subject())
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing subjects")
	}
	return created, nil
}

func (repo *scheduleRepository) UpdateSubject(ctx context.Context, sbj schedule.Subject) (schedule.Subject, error) {
	if !validID(sbj.ID) {
		return schedule.Subject{}, schedule.ErrSubjectNotFound
	}
	var row subjectRow
	err := repo.db.GetContext(ctx, &row,
		`UPDATE uni_subjects SET code = $3, name = NULLIF($4, ''), order_index = $5
		WHERE owner_id = $1 AND id = $2 RETURNING `+subjectColumns,
		sbj.OwnerID, sbj.ID, sbj.Code, sbj.Name, sbj.OrderIndex)
	switch {
	case err == sql.ErrNoRows:
		return schedule.Subject{}, schedule.ErrSubjectNotFound
	case isUniqueViolation(err):
		return schedule.Subject{}, schedule.ErrSubjectCodeExists
	case err != nil:
		return schedule.Subject{}, errors.Wrap(err, "updating subject")
	}
	return row.subject(), nil
}

// DeleteSubject relies on the ON DELETE CASCADE of uni_events.subject_id.
func (repo *scheduleRepository) DeleteSubject(ctx context.Context, ownerID, id string) (int, error) {
	if !validID(id) {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM uni_subjects WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return 0, errors.Wrap(err, "deleting subject")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "deleting subject")
}

func (repo *scheduleRepository) CreateEvent(ctx context.Context, ev schedule.Event) (schedule.Event, error) {
	if !validID(ev.SubjectID) {
		return schedule.Event{}, schedule.ErrSubjectNotFound
	}
	var owned bool
	err := repo.db.GetContext(ctx, &owned,
		`SELECT EXISTS (SELECT 1 FROM uni_subjects WHERE id = $1 AND owner_id = $2)`, ev.SubjectID, ev.OwnerID)
	if err != nil {
		return schedule.Event{}, errors.Wrap(err, "checking event subject")
	}
	if !owned {
		return schedule.Event{}, schedule.ErrSubjectNotFound
	}

	row := newEventRow(ev)
	row.ID = uuid.New().String()
	insert, args, err := repo.db.BindNamed(
		`INSERT INTO uni_events (`+eventColumns+`)
		VALUES (:id, :owner_id, :subject_id, :title, :type, :date, :end_date, :weight_percent, :created_at, :updated_at)
		RETURNING `+eventColumns, row)
	if err != nil {
		return schedule.Event{}, errors.Wrap(err, "binding event")
	}
	var created eventRow
	if err := repo.db.GetContext(ctx, &created, insert, args...); err != nil {
		return schedule.Event{}, errors.Wrap(err, "inserting event")
	}
	return created.event(), nil
}

func (repo *scheduleRepository) GetEvent(ctx context.Context, ownerID, id string) (schedule.Event, error) {
	if !validID(id) {
		return schedule.Event{}, schedule.ErrEventNotFound
	}
	var row eventRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+eventColumns+` FROM uni_events WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return schedule.Event{}, schedule.ErrEventNotFound
		}
		return schedule.Event{}, errors.Wrap(err, "finding event")
	}
	return row.event(), nil
}

func (repo *scheduleRepository) QueryEvents(ctx context.Context, ownerID string, filter schedule.EventFilter) ([]schedule.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM uni_events WHERE owner_id = ?`
	args := []interface{}{ownerID}
	if !filter.To.IsZero() {
		query += ` AND date < ?`
		args = append(args, filter.To)
	}
	if !filter.From.IsZero() {
		query += ` AND end_date >= ?`
		args = append(args, filter.From)
	}
	if filter.SubjectID != "" {
		if !validID(filter.SubjectID) {
			return []schedule.Event{}, nil
		}
		query += ` AND subject_id = ?`
		args = append(args, filter.SubjectID)
	}
	query += ` ORDER BY date, end_date, title, id`

	var rows []eventRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]schedule.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.event())
	}
	return events, nil
}

func (repo *scheduleRepository) UpdateEvent(ctx context.Context, ev schedule.Event) (schedule.Event, error) {
	if !validID(ev.ID) {
		return schedule.Event{}, schedule.ErrEventNotFound
	}
	update, args, err := repo.db.BindNamed(
		`UPDATE uni_events SET title = :title, type = :type, date = :date, end_date = :end_date,
			weight_percent = :weight_percent, updated_at = :updated_at
		WHERE owner_id = :owner_id AND id = :id
		RETURNING `+eventColumns, newEventRow(ev))
	if err != nil {
		return schedule.Event{}, errors.Wrap(err, "binding event")
	}
	var updated eventRow
	if err := repo.db.GetContext(ctx, &updated, update, args...); err != nil {
		if err == sql.ErrNoRows {
			return schedule.Event{}, schedule.ErrEventNotFound
		}
		return schedule.Event{}, errors.Wrap(err, "updating event")
	}
	return updated.event(), nil
}

func (repo *scheduleRepository) DeleteEvent(ctx context.Context, ownerID, id string) (int, error) {
	if !validID(id) {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM uni_events WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return 0, errors.Wrap(err, "deleting event")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "deleting event")
}
