package domain

import "time"

// Assignment lifecycle statuses. An assignment starts as "assigned" and moves
// to "submitted" or "late" when work arrives; "missed" is terminal and set
// only by an explicit admin action, never by a rule.
const (
	AssignmentAssigned  = "assigned"
	AssignmentSubmitted = "submitted"
	AssignmentLate      = "late"
	AssignmentMissed    = "missed"
)

type Task struct {
	TaskID      string    `json:"id" dynamodbav:"task_id"`
	Title       string    `json:"title" dynamodbav:"title"`
	Description string    `json:"description" dynamodbav:"description"`
	AssignedBy  string    `json:"assigned_by" dynamodbav:"assigned_by"`
	Deadline    time.Time `json:"deadline" dynamodbav:"deadline"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
}

type Assignment struct {
	AssignmentID string    `json:"id" dynamodbav:"assignment_id"`
	TaskID       string    `json:"task_id" dynamodbav:"task_id"`
	InternID     string    `json:"intern_id" dynamodbav:"intern_id"`
	Status       string    `json:"status" dynamodbav:"status"`
	AssignedAt   time.Time `json:"assigned_at" dynamodbav:"assigned_at"`
}

// Submission holds the uploaded work for one assignment. There is at most one
// submission per assignment; resubmitting replaces the stored file metadata
// and recomputes IsLate against the task deadline.
type Submission struct {
	SubmissionID     string    `json:"id" dynamodbav:"submission_id"`
	AssignmentID     string    `json:"assignment_id" dynamodbav:"assignment_id"`
	FileKey          string    `json:"-" dynamodbav:"file_key"`
	OriginalFilename string    `json:"original_filename" dynamodbav:"original_filename"`
	ContentType      string    `json:"content_type" dynamodbav:"content_type"`
	IsLate           bool      `json:"is_late" dynamodbav:"is_late"`
	SubmittedAt      time.Time `json:"submitted_at" dynamodbav:"submitted_at"`
}

// Rating is keyed by submission id: one rating per submission, and re-rating
// overwrites the previous value instead of appending.
type Rating struct {
	SubmissionID string    `json:"submission_id" dynamodbav:"submission_id"`
	RatedBy      string    `json:"rated_by" dynamodbav:"rated_by"`
	Rating       int       `json:"rating" dynamodbav:"rating"`
	Feedback     string    `json:"feedback" dynamodbav:"feedback"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
}

type CreateTaskRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline" validate:"required"`
}

type AssignTaskRequest struct {
	InternIDs []string `json:"intern_ids" validate:"required,min=1,dive,required"`
}

type RateSubmissionRequest struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback"`
}
