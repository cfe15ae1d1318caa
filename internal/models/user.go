package models

type User struct {
	ID           int    `json:"user_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FullName     string `json:"full_name,omitempty"`
	PasswordHash string `json:"-"`
	IsActive     bool   `json:"is_active"`
	IsAdmin      bool   `json:"is_admin"`
}
