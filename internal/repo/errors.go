package repo

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate means an insert or update violated a uniqueness constraint
// (duplicate username, email, or per-event attendee email).
var ErrDuplicate = errors.New("duplicate record")

// isUniqueViolation reports whether err is a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
