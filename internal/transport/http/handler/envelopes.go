package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/omarhamed888/paths-dashboard/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// SafeUser is the user shape returned to clients. Password hashes and photo
// keys never leave the server.
type SafeUser struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	FullName   string    `json:"full_name"`
	Phone      *string   `json:"phone,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	Department string    `json:"department,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type SafeSession struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthEnvelope wraps login and OTP-exchange responses.
type AuthEnvelope struct {
	AccessToken  string       `json:"access_token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	Session      *SafeSession `json:"session,omitempty"`
	User         *SafeUser    `json:"user,omitempty"`
	Message      string       `json:"message,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// SessionEnvelope wraps current-session responses.
type SessionEnvelope struct {
	Session *SafeSession `json:"session,omitempty"`
	User    *SafeUser    `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// ProfileEnvelope wraps a user with their intern stats, when any.
type ProfileEnvelope struct {
	User  *SafeUser           `json:"user"`
	Stats *domain.InternStats `json:"stats,omitempty"`
}

func toSafeUser(u *domain.User) *SafeUser {
	if u == nil {
		return nil
	}
	return &SafeUser{
		UserID:     u.UserID,
		Email:      u.Email,
		Role:       u.Role,
		FullName:   u.FullName,
		Phone:      u.Phone,
		Bio:        u.Bio,
		Department: u.Department,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
	}
}

func toSafeSession(s *domain.Session) *SafeSession {
	if s == nil {
		return nil
	}
	return &SafeSession{
		SessionID: s.SessionID,
		UserID:    s.UserID,
		CreatedAt: s.CreatedAt,
	}
}

func toSafeUsers(users []domain.User) []SafeUser {
	out := make([]SafeUser, 0, len(users))
	for i := range users {
		out = append(out, *toSafeUser(&users[i]))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
