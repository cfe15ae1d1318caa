package repo

import (
	"context"
	"database/sql"

	"github.com/eventdesk/eventdesk/internal/models"
)

// UserRepo persists user accounts. Password hashes are stored opaque; hashing
// happens in the auth package before values reach this layer.
type UserRepo struct {
	DB *sql.DB
}

// NewUserRepo returns a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

const userColumns = `user_id, username, email, COALESCE(full_name, ''), hashed_password, is_active, is_admin`

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.IsActive, &u.IsAdmin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user. Returns ErrDuplicate when the username or email
// is already registered.
func (r *UserRepo) Create(ctx context.Context, username, email, fullName, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, full_name, hashed_password)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		RETURNING ` + userColumns

	u, err := scanUser(r.DB.QueryRowContext(ctx, query, username, email, fullName, passwordHash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// GetByID returns one user by id, or (nil, nil) when absent.
func (r *UserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	return scanUser(r.DB.QueryRowContext(ctx, query, id))
}

// GetByUsername returns one user by username, or (nil, nil) when absent.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.DB.QueryRowContext(ctx, query, username))
}

// GetByEmail returns one user by email, or (nil, nil) when absent.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.DB.QueryRowContext(ctx, query, email))
}

// Update rewrites username, email, full_name, and hashed_password for the given
// id and returns the updated row. Returns ErrDuplicate on a uniqueness clash.
func (r *UserRepo) Update(ctx context.Context, id int, username, email, fullName, passwordHash string) (*models.User, error) {
	query := `
		UPDATE users
		SET username = $1, email = $2, full_name = NULLIF($3, ''), hashed_password = $4
		WHERE user_id = $5
		RETURNING ` + userColumns

	u, err := scanUser(r.DB.QueryRowContext(ctx, query, username, email, fullName, passwordHash, id))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// Delete removes a user by id. Deleting a missing user is not an error.
func (r *UserRepo) Delete(ctx context.Context, id int) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE user_id = $1`, id)
	return err
}
