package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/eventdesk/eventdesk/internal/auth"
	"github.com/eventdesk/eventdesk/internal/repo"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	Users  *repo.UserRepo
	Hasher *auth.Hasher
	Tokens *auth.TokenService
}

// Register creates a new user account. The password is bcrypt-hashed before it
// reaches the repo; the plaintext is never stored.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	fields := make(map[string]string)
	if len(input.Username) < 3 || len(input.Username) > 50 {
		fields["username"] = "must be 3-50 characters"
	}
	if !strings.Contains(input.Email, "@") {
		fields["email"] = "must be a valid email address"
	}
	if len(input.Password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusUnprocessableEntity)
		return
	}

	hash, err := h.Hasher.Hash(input.Password)
	if err != nil {
		slog.Error("register: hash password", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	user, err := h.Users.Create(r.Context(), input.Username, input.Email, input.FullName, hash)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			JSONError(w, "username or email already registered", http.StatusConflict)
			return
		}
		slog.Error("register: create user", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login verifies credentials and issues a bearer token. Unknown username and
// wrong password produce the same 401 so clients cannot enumerate accounts.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	user, err := h.Users.GetByUsername(r.Context(), input.Username)
	if err != nil {
		slog.Error("login: get user", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if user == nil || !user.IsActive {
		slog.Warn("login rejected", "reason", "unknown or inactive user", "username", input.Username)
		JSONError(w, ErrMessageUnauthorized, http.StatusUnauthorized)
		return
	}

	if err := h.Hasher.Verify(input.Password, user.PasswordHash); err != nil {
		if errors.Is(err, auth.ErrCorruptHash) {
			// Stored hash is unreadable: data corruption, not a bad password.
			slog.Error("login: corrupt password hash", "user_id", user.ID, "error", err)
			JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
			return
		}
		slog.Warn("login rejected", "reason", "wrong password", "user_id", user.ID)
		JSONError(w, ErrMessageUnauthorized, http.StatusUnauthorized)
		return
	}

	token, err := h.Tokens.Issue(user.ID)
	if err != nil {
		slog.Error("login: issue token", "user_id", user.ID, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}
