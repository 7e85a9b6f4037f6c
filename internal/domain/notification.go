package domain

import "time"

// Notification categories.
const (
	CategoryTask       = "task"
	CategoryAttendance = "attendance"
	CategoryRating     = "rating"
	CategorySystem     = "system"
)

// Notification severities, ordered critical > warning > info for display.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Notification is append-only: after creation the only permitted mutation is
// IsRead flipping false→true. The core never deletes notifications.
type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	RecipientID    string    `json:"recipient_id" dynamodbav:"recipient_id"`
	Category       string    `json:"category" dynamodbav:"category"`
	Title          string    `json:"title" dynamodbav:"title"`
	Message        string    `json:"message" dynamodbav:"message"`
	Severity       string    `json:"severity" dynamodbav:"severity"`
	IsRead         bool      `json:"is_read" dynamodbav:"is_read"`
	CreatedAt      time.Time `json:"created_at" dynamodbav:"created_at"`
}

// SeverityRank orders severities for display: lower rank sorts first.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}
