package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/omarhamed888/paths-dashboard/internal/domain"
	"github.com/omarhamed888/paths-dashboard/internal/pkg/id"
)

// InternTask is an intern's view of one assignment: the task it belongs to
// plus their submission and its rating when present.
type InternTask struct {
	Assignment domain.Assignment  `json:"assignment"`
	Task       domain.Task        `json:"task"`
	Submission *domain.Submission `json:"submission,omitempty"`
	Rating     *domain.Rating     `json:"rating,omitempty"`
}

// AssignmentDetail is the admin's view of one assignment within a task.
type AssignmentDetail struct {
	Assignment domain.Assignment  `json:"assignment"`
	InternName string             `json:"intern_name"`
	Submission *domain.Submission `json:"submission,omitempty"`
	Rating     *domain.Rating     `json:"rating,omitempty"`
}

type TaskDetail struct {
	Task        domain.Task        `json:"task"`
	Assignments []AssignmentDetail `json:"assignments"`
}

// TaskOverview is one row of the admin task list.
type TaskOverview struct {
	Task           domain.Task `json:"task"`
	AssignedCount  int         `json:"assigned_count"`
	SubmittedCount int         `json:"submitted_count"`
}

type Service interface {
	Create(ctx context.Context, adminID string, req domain.CreateTaskRequest) (*domain.Task, error)
	Delete(ctx context.Context, taskID string) error
	Assign(ctx context.Context, taskID string, req domain.AssignTaskRequest) ([]domain.Assignment, error)
	ListAll(ctx context.Context) ([]TaskOverview, error)
	ListForIntern(ctx context.Context, internID string) ([]InternTask, error)
	Detail(ctx context.Context, taskID string) (*TaskDetail, error)
	Submit(ctx context.Context, internID, assignmentID string, file io.Reader, filename, contentType string) (*domain.Submission, error)
	Download(ctx context.Context, callerID, callerRole, submissionID string) (io.ReadCloser, *domain.Submission, error)
	Rate(ctx context.Context, adminID, submissionID string, req domain.RateSubmissionRequest) (*domain.Rating, error)
	MarkMissed(ctx context.Context, assignmentID string) (*domain.Assignment, error)
}

type taskStore interface {
	Put(ctx context.Context, t *domain.Task) error
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	Delete(ctx context.Context, taskID string) error
	Scan(ctx context.Context) ([]domain.Task, error)
}

type assignmentStore interface {
	Put(ctx context.Context, a *domain.Assignment) error
	Get(ctx context.Context, assignmentID string) (*domain.Assignment, error)
	GetByTaskAndIntern(ctx context.Context, taskID, internID string) (*domain.Assignment, error)
	ListByTask(ctx context.Context, taskID string) ([]domain.Assignment, error)
	ListByIntern(ctx context.Context, internID string) ([]domain.Assignment, error)
	UpdateStatus(ctx context.Context, assignmentID, status string) error
	Delete(ctx context.Context, assignmentID string) error
}

type submissionStore interface {
	Put(ctx context.Context, s *domain.Submission) error
	Get(ctx context.Context, submissionID string) (*domain.Submission, error)
	GetByAssignment(ctx context.Context, assignmentID string) (*domain.Submission, error)
}

type ratingStore interface {
	Put(ctx context.Context, r *domain.Rating) error
	Get(ctx context.Context, submissionID string) (*domain.Rating, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type fileStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type ruleEngine interface {
	OnTaskAssigned(ctx context.Context, task *domain.Task, internIDs []string)
	OnSubmissionReceived(ctx context.Context, intern *domain.User, task *domain.Task, isLate bool)
	OnSubmissionRated(ctx context.Context, intern *domain.User, taskTitle string, rating int)
}

type service struct {
	tasks       taskStore
	assignments assignmentStore
	submissions submissionStore
	ratings     ratingStore
	users       userStore
	files       fileStore
	engine      ruleEngine
}

type ServiceDeps struct {
	TaskRepo       taskStore
	AssignmentRepo assignmentStore
	SubmissionRepo submissionStore
	RatingRepo     ratingStore
	UserRepo       userStore
	Files          fileStore
	Engine         ruleEngine
}

func NewService(deps ServiceDeps) Service {
	return &service{
		tasks:       deps.TaskRepo,
		assignments: deps.AssignmentRepo,
		submissions: deps.SubmissionRepo,
		ratings:     deps.RatingRepo,
		users:       deps.UserRepo,
		files:       deps.Files,
		engine:      deps.Engine,
	}
}

func (s *service) Create(ctx context.Context, adminID string, req domain.CreateTaskRequest) (*domain.Task, error) {
	t := &domain.Task{
		TaskID:      id.New(),
		Title:       req.Title,
		Description: req.Description,
		AssignedBy:  adminID,
		Deadline:    req.Deadline,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.tasks.Put(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a task and its assignments. Submission records and files
// stay behind so rated work remains auditable.
func (s *service) Delete(ctx context.Context, taskID string) error {
	if _, err := s.tasks.Get(ctx, taskID); err != nil {
		return err
	}
	assignments, err := s.assignments.ListByTask(ctx, taskID)
	if err != nil {
		return err
	}
	for _, a := range assignments {
		if err := s.assignments.Delete(ctx, a.AssignmentID); err != nil {
			slog.Warn("failed to delete assignment during task delete", "assignment_id", a.AssignmentID, "err", err)
		}
	}
	return s.tasks.Delete(ctx, taskID)
}

// Assign links the task to each intern, skipping interns that already have an
// assignment so re-assigning is idempotent. Only newly assigned interns are
// notified.
func (s *service) Assign(ctx context.Context, taskID string, req domain.AssignTaskRequest) ([]domain.Assignment, error) {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	var created []domain.Assignment
	var newInternIDs []string
	for _, internID := range req.InternIDs {
		u, err := s.users.Get(ctx, internID)
		if err != nil {
			return nil, err
		}
		if u.Role != domain.RoleIntern {
			return nil, fmt.Errorf("user %s is not an intern: %w", internID, domain.ErrBadRequest)
		}
		if _, err := s.assignments.GetByTaskAndIntern(ctx, taskID, internID); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		a := domain.Assignment{
			AssignmentID: id.New(),
			TaskID:       taskID,
			InternID:     internID,
			Status:       domain.AssignmentAssigned,
			AssignedAt:   time.Now().UTC(),
		}
		if err := s.assignments.Put(ctx, &a); err != nil {
			return nil, err
		}
		created = append(created, a)
		newInternIDs = append(newInternIDs, internID)
	}
	if len(newInternIDs) > 0 {
		s.engine.OnTaskAssigned(ctx, t, newInternIDs)
	}
	return created, nil
}

// ListAll returns every task with its assignment and submission tallies.
// Late submissions count as submitted.
func (s *service) ListAll(ctx context.Context) ([]TaskOverview, error) {
	tasks, err := s.tasks.Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TaskOverview, 0, len(tasks))
	for _, t := range tasks {
		row := TaskOverview{Task: t}
		assignments, err := s.assignments.ListByTask(ctx, t.TaskID)
		if err != nil {
			return nil, err
		}
		row.AssignedCount = len(assignments)
		for _, a := range assignments {
			if a.Status == domain.AssignmentSubmitted || a.Status == domain.AssignmentLate {
				row.SubmittedCount++
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *service) ListForIntern(ctx context.Context, internID string) ([]InternTask, error) {
	assignments, err := s.assignments.ListByIntern(ctx, internID)
	if err != nil {
		return nil, err
	}
	out := make([]InternTask, 0, len(assignments))
	for _, a := range assignments {
		t, err := s.tasks.Get(ctx, a.TaskID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		item := InternTask{Assignment: a, Task: *t}
		item.Submission, item.Rating, err = s.submissionWithRating(ctx, a.AssignmentID)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *service) Detail(ctx context.Context, taskID string) (*TaskDetail, error) {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.assignments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	detail := &TaskDetail{Task: *t, Assignments: make([]AssignmentDetail, 0, len(assignments))}
	for _, a := range assignments {
		ad := AssignmentDetail{Assignment: a}
		if u, err := s.users.Get(ctx, a.InternID); err == nil {
			ad.InternName = u.FullName
		}
		ad.Submission, ad.Rating, err = s.submissionWithRating(ctx, a.AssignmentID)
		if err != nil {
			return nil, err
		}
		detail.Assignments = append(detail.Assignments, ad)
	}
	return detail, nil
}

func (s *service) submissionWithRating(ctx context.Context, assignmentID string) (*domain.Submission, *domain.Rating, error) {
	sub, err := s.submissions.GetByAssignment(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	rating, err := s.ratings.Get(ctx, sub.SubmissionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return sub, nil, nil
		}
		return nil, nil, err
	}
	return sub, rating, nil
}

// Submit uploads the intern's work for an assignment. Submitting again
// replaces the stored file and metadata; lateness is recomputed against the
// deadline each time.
func (s *service) Submit(ctx context.Context, internID, assignmentID string, file io.Reader, filename, contentType string) (*domain.Submission, error) {
	a, err := s.assignments.Get(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.InternID != internID {
		return nil, fmt.Errorf("assignment belongs to another intern: %w", domain.ErrForbidden)
	}
	if a.Status == domain.AssignmentMissed {
		return nil, fmt.Errorf("assignment was marked missed: %w", domain.ErrConflict)
	}
	t, err := s.tasks.Get(ctx, a.TaskID)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, internID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	isLate := now.After(t.Deadline)

	submissionID := id.New()
	if existing, err := s.submissions.GetByAssignment(ctx, assignmentID); err == nil {
		submissionID = existing.SubmissionID
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	key := fmt.Sprintf("submissions/%s", assignmentID)
	if err := s.files.Upload(ctx, key, file, contentType); err != nil {
		return nil, err
	}

	sub := &domain.Submission{
		SubmissionID:     submissionID,
		AssignmentID:     assignmentID,
		FileKey:          key,
		OriginalFilename: filename,
		ContentType:      contentType,
		IsLate:           isLate,
		SubmittedAt:      now,
	}
	if err := s.submissions.Put(ctx, sub); err != nil {
		return nil, err
	}

	status := domain.AssignmentSubmitted
	if isLate {
		status = domain.AssignmentLate
	}
	if err := s.assignments.UpdateStatus(ctx, assignmentID, status); err != nil {
		return nil, err
	}

	s.engine.OnSubmissionReceived(ctx, u, t, isLate)
	return sub, nil
}

// Download streams a submitted file. Admins can fetch any submission;
// interns only their own.
func (s *service) Download(ctx context.Context, callerID, callerRole, submissionID string) (io.ReadCloser, *domain.Submission, error) {
	sub, err := s.submissions.Get(ctx, submissionID)
	if err != nil {
		return nil, nil, err
	}
	if callerRole != domain.RoleAdmin {
		a, err := s.assignments.Get(ctx, sub.AssignmentID)
		if err != nil {
			return nil, nil, err
		}
		if a.InternID != callerID {
			return nil, nil, fmt.Errorf("submission belongs to another intern: %w", domain.ErrForbidden)
		}
	}
	body, err := s.files.Download(ctx, sub.FileKey)
	if err != nil {
		return nil, nil, err
	}
	return body, sub, nil
}

// Rate stores the admin's rating for a submission. Ratings key on the
// submission, so rating again overwrites and re-runs the low-rating rule.
func (s *service) Rate(ctx context.Context, adminID, submissionID string, req domain.RateSubmissionRequest) (*domain.Rating, error) {
	sub, err := s.submissions.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	a, err := s.assignments.Get(ctx, sub.AssignmentID)
	if err != nil {
		return nil, err
	}
	t, err := s.tasks.Get(ctx, a.TaskID)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, a.InternID)
	if err != nil {
		return nil, err
	}
	rating := &domain.Rating{
		SubmissionID: submissionID,
		RatedBy:      adminID,
		Rating:       req.Rating,
		Feedback:     req.Feedback,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.ratings.Put(ctx, rating); err != nil {
		return nil, err
	}
	s.engine.OnSubmissionRated(ctx, u, t.Title, req.Rating)
	return rating, nil
}

// MarkMissed is an explicit admin action on an assignment with no submission.
// It never fires notification rules.
func (s *service) MarkMissed(ctx context.Context, assignmentID string) (*domain.Assignment, error) {
	a, err := s.assignments.Get(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.AssignmentAssigned {
		return nil, fmt.Errorf("only unsubmitted assignments can be marked missed: %w", domain.ErrConflict)
	}
	if err := s.assignments.UpdateStatus(ctx, assignmentID, domain.AssignmentMissed); err != nil {
		return nil, err
	}
	a.Status = domain.AssignmentMissed
	return a, nil
}
