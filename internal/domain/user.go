package domain

import "time"

// Role names stored on the user record and carried in JWT claims.
const (
	RoleAdmin  = "admin"
	RoleIntern = "intern"
)

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	Role         string    `json:"role" dynamodbav:"role"`
	FullName     string    `json:"full_name" dynamodbav:"full_name"`
	Phone        *string   `json:"phone,omitempty" dynamodbav:"phone"`
	PhotoKey     string    `json:"photo_key,omitempty" dynamodbav:"photo_key"`
	Bio          string    `json:"bio,omitempty" dynamodbav:"bio"`
	Department   string    `json:"department,omitempty" dynamodbav:"department"`
	IsActive     bool      `json:"is_active" dynamodbav:"is_active"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateUserRequest struct {
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"required,min=8,max=72"`
	FullName   string  `json:"full_name" validate:"required"`
	Role       string  `json:"role" validate:"omitempty,oneof=admin intern"`
	Department string  `json:"department"`
	Phone      *string `json:"phone"`
}

type UpdateProfileRequest struct {
	FullName   *string `json:"full_name"`
	Bio        *string `json:"bio"`
	Department *string `json:"department"`
	Phone      *string `json:"phone"`
}

// InternStats aggregates an intern's attendance, task and rating history
// for the profile and admin intern-detail views.
type InternStats struct {
	Attendance AttendanceSummary `json:"attendance"`
	Tasks      TaskCounts        `json:"tasks"`
	AvgRating  *float64          `json:"avg_rating"`
}

type TaskCounts struct {
	Total     int `json:"total_assignments"`
	Submitted int `json:"submitted"`
	Late      int `json:"late"`
	Missed    int `json:"missed"`
}
