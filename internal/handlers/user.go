package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/eventdesk/eventdesk/internal/auth"
	"github.com/eventdesk/eventdesk/internal/middleware"
	"github.com/eventdesk/eventdesk/internal/repo"
)

// UserHandler serves the authenticated user's own profile.
type UserHandler struct {
	Users  *repo.UserRepo
	Hasher *auth.Hasher
	Audit  *repo.AuditRepo
}

// Me returns the authenticated user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	if user == nil {
		JSONError(w, ErrMessageUnauthorized, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe updates the authenticated user's profile. Omitted fields keep their
// current value; a new password is re-hashed. Admin status cannot be changed here.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	if user == nil {
		JSONError(w, ErrMessageUnauthorized, http.StatusUnauthorized)
		return
	}

	var input struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
		FullName *string `json:"full_name"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	fields := make(map[string]string)
	username := user.Username
	if input.Username != nil {
		if len(*input.Username) < 3 || len(*input.Username) > 50 {
			fields["username"] = "must be 3-50 characters"
		}
		username = *input.Username
	}
	email := user.Email
	if input.Email != nil {
		if !strings.Contains(*input.Email, "@") {
			fields["email"] = "must be a valid email address"
		}
		email = *input.Email
	}
	fullName := user.FullName
	if input.FullName != nil {
		fullName = *input.FullName
	}
	hash := user.PasswordHash
	if input.Password != nil {
		if len(*input.Password) < 8 {
			fields["password"] = "must be at least 8 characters"
		} else {
			var err error
			hash, err = h.Hasher.Hash(*input.Password)
			if err != nil {
				slog.Error("update user: hash password", "error", err)
				JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
				return
			}
		}
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusUnprocessableEntity)
		return
	}

	updated, err := h.Users.Update(r.Context(), user.ID, username, email, fullName, hash)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			JSONError(w, "username or email already registered", http.StatusConflict)
			return
		}
		slog.Error("update user", "user_id", user.ID, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	if h.Audit != nil {
		_ = h.Audit.Log(r.Context(), user.ID, "update", "user", user.ID, "")
	}

	writeJSON(w, http.StatusOK, updated)
}
