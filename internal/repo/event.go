package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
)

// EventRepo persists events.
type EventRepo struct {
	DB *sql.DB
}

// NewEventRepo returns a new EventRepo.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{DB: db}
}

// EventFilter narrows List results. Zero values mean "no filter".
type EventFilter struct {
	Status    string
	Location  string
	StartDate time.Time
	EndDate   time.Time
	Search    string
}

const eventColumns = `event_id, name, COALESCE(description, ''), start_time, end_time, location, max_attendees, status`

func scanEvent(row *sql.Row) (*models.Event, error) {
	e := &models.Event{}
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.StartTime, &e.EndTime, &e.Location, &e.MaxAttendees, &e.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Create inserts a new event and returns it with id set.
func (r *EventRepo) Create(ctx context.Context, e *models.Event) (*models.Event, error) {
	query := `
		INSERT INTO events (name, description, start_time, end_time, location, max_attendees, status)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
		RETURNING ` + eventColumns

	return scanEvent(r.DB.QueryRowContext(ctx, query,
		e.Name, e.Description, e.StartTime, e.EndTime, e.Location, e.MaxAttendees, e.Status))
}

// GetByID returns one event by id, or (nil, nil) when absent.
func (r *EventRepo) GetByID(ctx context.Context, id int) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE event_id = $1`
	return scanEvent(r.DB.QueryRowContext(ctx, query, id))
}

// Update rewrites all mutable columns for the given id and returns the updated
// row, or (nil, nil) when the event does not exist. Handlers merge partial
// updates onto the current row before calling this.
func (r *EventRepo) Update(ctx context.Context, e *models.Event) (*models.Event, error) {
	query := `
		UPDATE events
		SET name = $1, description = NULLIF($2, ''), start_time = $3, end_time = $4,
		    location = $5, max_attendees = $6, status = $7
		WHERE event_id = $8
		RETURNING ` + eventColumns

	return scanEvent(r.DB.QueryRowContext(ctx, query,
		e.Name, e.Description, e.StartTime, e.EndTime, e.Location, e.MaxAttendees, e.Status, e.ID))
}

// Delete removes an event by id. Attendees cascade via the FK.
func (r *EventRepo) Delete(ctx context.Context, id int) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE event_id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// buildFilter renders the WHERE clause for f starting at placeholder $1 and
// returns the clause with its arguments.
func buildFilter(f EventFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Location != "" {
		add("location ILIKE $%d", "%"+f.Location+"%")
	}
	if !f.StartDate.IsZero() {
		add("start_time >= $%d", f.StartDate)
	}
	if !f.EndDate.IsZero() {
		add("end_time <= $%d", f.EndDate)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns events matching f ordered by start_time, plus the total count
// over the same filter (for pagination).
func (r *EventRepo) List(ctx context.Context, f EventFilter, limit, offset int) ([]models.Event, int, error) {
	where, args := buildFilter(f)

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT %s FROM events%s ORDER BY start_time LIMIT $%d OFFSET $%d`,
		eventColumns, where, len(args)+1, len(args)+2,
	)
	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.StartTime, &e.EndTime, &e.Location, &e.MaxAttendees, &e.Status); err != nil {
			return nil, 0, err
		}
		list = append(list, e)
	}
	return list, total, rows.Err()
}

// AttendeeCount returns the number of registered attendees for an event.
func (r *EventRepo) AttendeeCount(ctx context.Context, eventID int) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendees WHERE event_id = $1`, eventID).Scan(&n)
	return n, err
}

// RollStatuses moves scheduled events past their start to ongoing, and
// scheduled/ongoing events past their end to completed. Returns the number of
// rows moved to each status.
func (r *EventRepo) RollStatuses(ctx context.Context) (ongoing, completed int, err error) {
	now := time.Now()

	res, err := r.DB.ExecContext(ctx,
		`UPDATE events SET status = 'ongoing'
		 WHERE status = 'scheduled' AND start_time <= $1 AND end_time > $1`, now)
	if err != nil {
		return 0, 0, err
	}
	n, _ := res.RowsAffected()
	ongoing = int(n)

	res, err = r.DB.ExecContext(ctx,
		`UPDATE events SET status = 'completed'
		 WHERE status IN ('scheduled', 'ongoing') AND end_time <= $1`, now)
	if err != nil {
		return ongoing, 0, err
	}
	n, _ = res.RowsAffected()
	completed = int(n)

	return ongoing, completed, nil
}
