package domain

import "time"

// Attendance statuses.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
)

// DateLayout is the calendar-day format used as the attendance sort key.
// Lexicographic order on this layout matches chronological order.
const DateLayout = "2006-01-02"

// AttendanceRecord is keyed by (user_id, date): marking the same day twice
// overwrites the earlier record rather than creating a duplicate.
type AttendanceRecord struct {
	UserID      string     `json:"user_id" dynamodbav:"user_id"`
	Date        string     `json:"date" dynamodbav:"date"`
	Status      string     `json:"status" dynamodbav:"status"`
	CheckInTime *time.Time `json:"check_in_time,omitempty" dynamodbav:"check_in_time"`
	CreatedAt   time.Time  `json:"created_at" dynamodbav:"created_at"`
}

type MarkAttendanceRequest struct {
	UserID      string     `json:"user_id" validate:"required"`
	Date        string     `json:"date" validate:"required,datetime=2006-01-02"`
	Status      string     `json:"status" validate:"required,oneof=present absent late"`
	CheckInTime *time.Time `json:"check_in_time"`
}

type AttendanceSummary struct {
	TotalDays   int `json:"total_days"`
	PresentDays int `json:"present_days"`
	AbsentDays  int `json:"absent_days"`
	LateDays    int `json:"late_days"`
}

// TeamAttendanceSummary is the admin-side rollup over the trailing 30 days.
type TeamAttendanceSummary struct {
	TotalInterns int `json:"total_interns"`
	TotalRecords int `json:"total_records"`
	TotalPresent int `json:"total_present"`
	TotalAbsent  int `json:"total_absent"`
	TotalLate    int `json:"total_late"`
}
