package auth

import (
	"strings"
	"time"
)

const (
	RoleStandard = "standard"
	RoleAdmin    = "admin"

	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// User is an account identified by its normalized email address.
// PasswordHash never leaves this package in serialized form.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Status       string     `json:"statut"`
	RegisteredAt time.Time  `json:"dateInscription"`
	LastLoginAt  *time.Time `json:"derniereConnexion,omitempty"`
}

// DisplayName derives the name shown in the UI from the local part of the
// email, matching the historical behavior of the client.
func (u User) DisplayName() string {
	if at := strings.IndexByte(u.Email, '@'); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

// IsAdmin reports whether the user may access admin-only routes.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// ResetToken is a single-use, time-boxed password-reset secret.
// At most one live token exists per user; issuing a new one deletes all
// previous tokens for that user.
type ResetToken struct {
	ID        string
	Token     string
	Email     string
	UserID    string
	CreatedAt time.Time
}

// ExpiredAt reports whether the token is past its validity window at now.
func (t ResetToken) ExpiredAt(now time.Time, window time.Duration) bool {
	return now.Sub(t.CreatedAt) > window
}

// Stats aggregates the counters shown on the admin dashboard.
type Stats struct {
	TotalUsers     int64          `json:"totalUtilisateurs"`
	NewThisMonth   int64          `json:"nouveauxUtilisateurs"`
	ActiveLastDay  int64          `json:"utilisateursActifs"`
	NewThisWeek    int64          `json:"utilisateursSemaine"`
	MonthlySignups []MonthlyCount `json:"statsMensuelles"`
	LatestUsers    []User         `json:"derniersUtilisateurs"`
}

// MonthlyCount is a per-calendar-month registration count.
type MonthlyCount struct {
	Year  int   `json:"year"`
	Month int   `json:"month"`
	Count int64 `json:"count"`
}

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users []User `json:"utilisateurs"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Total int64  `json:"total"`
	Pages int64  `json:"pages"`
}

// NormalizeEmail lowercases and trims an email so lookups are
// case-insensitive and duplicates are caught regardless of case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail is a minimal structural check: something@something.something.
func ValidEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	dot := strings.IndexByte(domain, '.')
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}
