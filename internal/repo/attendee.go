package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/lib/pq"
)

// AttendeeRepo persists event attendees.
type AttendeeRepo struct {
	DB *sql.DB
}

// NewAttendeeRepo returns a new AttendeeRepo.
func NewAttendeeRepo(db *sql.DB) *AttendeeRepo {
	return &AttendeeRepo{DB: db}
}

const attendeeColumns = `attendee_id, first_name, last_name, email, COALESCE(phone_number, ''), event_id, check_in_status`

func scanAttendee(row *sql.Row) (*models.Attendee, error) {
	a := &models.Attendee{}
	err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.PhoneNumber, &a.EventID, &a.CheckInStatus)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new attendee. Returns ErrDuplicate when the email is
// already registered for the event (per-event unique index).
func (r *AttendeeRepo) Create(ctx context.Context, a *models.Attendee) (*models.Attendee, error) {
	query := `
		INSERT INTO attendees (first_name, last_name, email, phone_number, event_id)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		RETURNING ` + attendeeColumns

	out, err := scanAttendee(r.DB.QueryRowContext(ctx, query,
		a.FirstName, a.LastName, a.Email, a.PhoneNumber, a.EventID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return out, nil
}

// GetByID returns one attendee by id, or (nil, nil) when absent.
func (r *AttendeeRepo) GetByID(ctx context.Context, id int) (*models.Attendee, error) {
	query := `SELECT ` + attendeeColumns + ` FROM attendees WHERE attendee_id = $1`
	return scanAttendee(r.DB.QueryRowContext(ctx, query, id))
}

// Update rewrites the mutable columns for the given id and returns the updated
// row. Returns ErrDuplicate when the new email clashes within the event.
func (r *AttendeeRepo) Update(ctx context.Context, a *models.Attendee) (*models.Attendee, error) {
	query := `
		UPDATE attendees
		SET first_name = $1, last_name = $2, email = $3, phone_number = NULLIF($4, ''), check_in_status = $5
		WHERE attendee_id = $6
		RETURNING ` + attendeeColumns

	out, err := scanAttendee(r.DB.QueryRowContext(ctx, query,
		a.FirstName, a.LastName, a.Email, a.PhoneNumber, a.CheckInStatus, a.ID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return out, nil
}

// Delete removes an attendee by id.
func (r *AttendeeRepo) Delete(ctx context.Context, id int) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM attendees WHERE attendee_id = $1`, id)
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

// ListByEvent returns attendees of an event ordered by name, plus the total
// count over the same filter. checkedIn filters by check-in status when
// non-nil; search matches names and email, case-insensitive.
func (r *AttendeeRepo) ListByEvent(ctx context.Context, eventID int, checkedIn *bool, search string, limit, offset int) ([]models.Attendee, int, error) {
	where := ` WHERE event_id = $1`
	args := []interface{}{eventID}

	if checkedIn != nil {
		args = append(args, *checkedIn)
		where += fmt.Sprintf(" AND check_in_status = $%d", len(args))
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)", n, n, n)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendees`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT %s FROM attendees%s ORDER BY first_name, last_name LIMIT $%d OFFSET $%d`,
		attendeeColumns, where, len(args)+1, len(args)+2,
	)
	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []models.Attendee
	for rows.Next() {
		var a models.Attendee
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.PhoneNumber, &a.EventID, &a.CheckInStatus); err != nil {
			return nil, 0, err
		}
		list = append(list, a)
	}
	return list, total, rows.Err()
}

// CheckIn marks one attendee as checked in.
func (r *AttendeeRepo) CheckIn(ctx context.Context, id int) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE attendees SET check_in_status = TRUE WHERE attendee_id = $1`, id)
	return err
}

// FindByEventAndIDs returns the attendees of eventID whose ids appear in ids.
func (r *AttendeeRepo) FindByEventAndIDs(ctx context.Context, eventID int, ids []int) ([]models.Attendee, error) {
	query := `SELECT ` + attendeeColumns + ` FROM attendees WHERE event_id = $1 AND attendee_id = ANY($2)`
	rows, err := r.DB.QueryContext(ctx, query, eventID, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Attendee
	for rows.Next() {
		var a models.Attendee
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.PhoneNumber, &a.EventID, &a.CheckInStatus); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// CheckInMany marks the given attendee ids of eventID as checked in.
func (r *AttendeeRepo) CheckInMany(ctx context.Context, eventID int, ids []int) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE attendees SET check_in_status = TRUE WHERE event_id = $1 AND attendee_id = ANY($2)`,
		eventID, pq.Array(ids))
	return err
}

// ExistingEmails returns which of emails are already registered for eventID.
func (r *AttendeeRepo) ExistingEmails(ctx context.Context, eventID int, emails []string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT email FROM attendees WHERE event_id = $1 AND email = ANY($2)`,
		eventID, pq.Array(emails))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateMany inserts attendees for eventID inside one transaction; either all
// rows are created or none. Returns the new attendee ids in input order.
func (r *AttendeeRepo) CreateMany(ctx context.Context, eventID int, attendees []models.Attendee) ([]int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ids := make([]int, 0, len(attendees))
	for _, a := range attendees {
		var id int
		err := tx.QueryRowContext(ctx,
			`INSERT INTO attendees (first_name, last_name, email, phone_number, event_id)
			 VALUES ($1, $2, $3, NULLIF($4, ''), $5)
			 RETURNING attendee_id`,
			a.FirstName, a.LastName, a.Email, a.PhoneNumber, eventID).Scan(&id)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, ErrDuplicate
			}
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}
