package dashboard

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/omarhamed888/paths-dashboard/internal/application/task"
	"github.com/omarhamed888/paths-dashboard/internal/domain"
)

// AdminOverview is the admin landing-page payload.
type AdminOverview struct {
	TotalInterns      int                   `json:"total_interns"`
	InternsAtRisk     int                   `json:"interns_at_risk"`
	OverdueTasks      int                   `json:"overdue_tasks"`
	AbsenceAlerts     int                   `json:"absence_alerts"`
	RecentSubmissions []RecentSubmission    `json:"recent_submissions"`
	ActiveAlerts      []domain.Notification `json:"active_alerts"`
}

type RecentSubmission struct {
	Submission domain.Submission `json:"submission"`
	InternName string            `json:"intern_name"`
	TaskTitle  string            `json:"task_title"`
}

// InternOverview is the intern landing-page payload. TaskList carries the
// intern's assignments with submission and rating detail, earliest deadline
// first.
type InternOverview struct {
	Attendance    domain.AttendanceSummary `json:"attendance"`
	Tasks         domain.TaskCounts        `json:"tasks"`
	TaskList      []task.InternTask        `json:"task_list"`
	RecentRatings []RecentRating           `json:"recent_ratings"`
	UnreadCount   int                      `json:"unread_count"`
	ActiveAlerts  []domain.Notification    `json:"active_alerts"`
}

type RecentRating struct {
	Rating    domain.Rating `json:"rating"`
	TaskTitle string        `json:"task_title"`
}

type Service interface {
	AdminOverview(ctx context.Context, adminID string) (*AdminOverview, error)
	InternOverview(ctx context.Context, internID string) (*InternOverview, error)
	ActiveAlerts(ctx context.Context, recipientID string) ([]domain.Notification, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	ListByRole(ctx context.Context, role string) ([]domain.User, error)
}

type taskStore interface {
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	Scan(ctx context.Context) ([]domain.Task, error)
}

type assignmentStore interface {
	Get(ctx context.Context, assignmentID string) (*domain.Assignment, error)
	ListByTask(ctx context.Context, taskID string) ([]domain.Assignment, error)
	ListByIntern(ctx context.Context, internID string) ([]domain.Assignment, error)
	CountByStatus(ctx context.Context, internID string, statuses ...string) (int, error)
}

type submissionStore interface {
	Scan(ctx context.Context) ([]domain.Submission, error)
	GetByAssignment(ctx context.Context, assignmentID string) (*domain.Submission, error)
}

type ratingStore interface {
	Get(ctx context.Context, submissionID string) (*domain.Rating, error)
}

type attendanceStore interface {
	History(ctx context.Context, userID string) ([]domain.AttendanceRecord, error)
}

type notificationStore interface {
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	CountUnread(ctx context.Context, recipientID, category, severity string) (int, error)
	ListAlerts(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error)
}

// atRiskThreshold mirrors the rule engine's performance threshold: an intern
// is flagged once late plus missed assignments reach it.
const atRiskThreshold = 2

const recentSubmissionsLimit = 10
const recentRatingsLimit = 5
const activeAlertsLimit = 10

type service struct {
	users         userStore
	tasks         taskStore
	assignments   assignmentStore
	submissions   submissionStore
	ratings       ratingStore
	attendance    attendanceStore
	notifications notificationStore
}

type ServiceDeps struct {
	UserRepo         userStore
	TaskRepo         taskStore
	AssignmentRepo   assignmentStore
	SubmissionRepo   submissionStore
	RatingRepo       ratingStore
	AttendanceRepo   attendanceStore
	NotificationRepo notificationStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:         deps.UserRepo,
		tasks:         deps.TaskRepo,
		assignments:   deps.AssignmentRepo,
		submissions:   deps.SubmissionRepo,
		ratings:       deps.RatingRepo,
		attendance:    deps.AttendanceRepo,
		notifications: deps.NotificationRepo,
	}
}

func (s *service) AdminOverview(ctx context.Context, adminID string) (*AdminOverview, error) {
	interns, err := s.users.ListByRole(ctx, domain.RoleIntern)
	if err != nil {
		return nil, err
	}
	overview := &AdminOverview{TotalInterns: len(interns)}

	for _, intern := range interns {
		count, err := s.assignments.CountByStatus(ctx, intern.UserID, domain.AssignmentLate, domain.AssignmentMissed)
		if err != nil {
			return nil, err
		}
		if count >= atRiskThreshold {
			overview.InternsAtRisk++
		}
	}

	overview.OverdueTasks, err = s.countOverdue(ctx)
	if err != nil {
		return nil, err
	}

	overview.AbsenceAlerts, err = s.notifications.CountUnread(ctx, adminID, domain.CategoryAttendance, domain.SeverityCritical)
	if err != nil {
		return nil, err
	}

	overview.RecentSubmissions, err = s.recentSubmissions(ctx)
	if err != nil {
		return nil, err
	}

	overview.ActiveAlerts, err = s.ActiveAlerts(ctx, adminID)
	if err != nil {
		return nil, err
	}
	return overview, nil
}

// ActiveAlerts returns the recipient's unread alerts, most severe first and
// newest first within a severity.
func (s *service) ActiveAlerts(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	alerts, err := s.notifications.ListAlerts(ctx, recipientID, activeAlertsLimit)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return domain.SeverityRank(alerts[i].Severity) < domain.SeverityRank(alerts[j].Severity)
	})
	return alerts, nil
}

// countOverdue counts still-unsubmitted assignments on tasks whose deadline
// has passed.
func (s *service) countOverdue(ctx context.Context) (int, error) {
	tasks, err := s.tasks.Scan(ctx)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	overdue := 0
	for _, t := range tasks {
		if !now.After(t.Deadline) {
			continue
		}
		assignments, err := s.assignments.ListByTask(ctx, t.TaskID)
		if err != nil {
			return 0, err
		}
		for _, a := range assignments {
			if a.Status == domain.AssignmentAssigned {
				overdue++
			}
		}
	}
	return overdue, nil
}

func (s *service) recentSubmissions(ctx context.Context) ([]RecentSubmission, error) {
	subs, err := s.submissions.Scan(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].SubmittedAt.After(subs[j].SubmittedAt)
	})
	if len(subs) > recentSubmissionsLimit {
		subs = subs[:recentSubmissionsLimit]
	}
	out := make([]RecentSubmission, 0, len(subs))
	for _, sub := range subs {
		item := RecentSubmission{Submission: sub}
		a, err := s.assignments.Get(ctx, sub.AssignmentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				out = append(out, item)
				continue
			}
			return nil, err
		}
		if u, err := s.users.Get(ctx, a.InternID); err == nil {
			item.InternName = u.FullName
		}
		if t, err := s.tasks.Get(ctx, a.TaskID); err == nil {
			item.TaskTitle = t.Title
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *service) InternOverview(ctx context.Context, internID string) (*InternOverview, error) {
	overview := &InternOverview{}

	records, err := s.attendance.History(ctx, internID)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		overview.Attendance.TotalDays++
		switch rec.Status {
		case domain.AttendancePresent:
			overview.Attendance.PresentDays++
		case domain.AttendanceAbsent:
			overview.Attendance.AbsentDays++
		case domain.AttendanceLate:
			overview.Attendance.LateDays++
		}
	}

	assignments, err := s.assignments.ListByIntern(ctx, internID)
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		overview.Tasks.Total++
		switch a.Status {
		case domain.AssignmentSubmitted:
			overview.Tasks.Submitted++
		case domain.AssignmentLate:
			overview.Tasks.Submitted++
			overview.Tasks.Late++
		case domain.AssignmentMissed:
			overview.Tasks.Missed++
		}
	}

	overview.TaskList, overview.RecentRatings, err = s.internTasks(ctx, assignments)
	if err != nil {
		return nil, err
	}

	overview.UnreadCount, err = s.notifications.UnreadCount(ctx, internID)
	if err != nil {
		return nil, err
	}
	overview.ActiveAlerts, err = s.ActiveAlerts(ctx, internID)
	if err != nil {
		return nil, err
	}
	return overview, nil
}

// internTasks joins assignments with their task, submission and rating rows.
// Assignments whose task is gone are skipped. Tasks come back earliest
// deadline first, ratings newest first capped at recentRatingsLimit.
func (s *service) internTasks(ctx context.Context, assignments []domain.Assignment) ([]task.InternTask, []RecentRating, error) {
	rows := make([]task.InternTask, 0, len(assignments))
	var ratings []RecentRating
	for _, a := range assignments {
		t, err := s.tasks.Get(ctx, a.TaskID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, nil, err
		}
		item := task.InternTask{Assignment: a, Task: *t}
		sub, err := s.submissions.GetByAssignment(ctx, a.AssignmentID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, err
		}
		if sub != nil {
			item.Submission = sub
			rt, err := s.ratings.Get(ctx, sub.SubmissionID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, nil, err
			}
			if rt != nil {
				item.Rating = rt
				ratings = append(ratings, RecentRating{Rating: *rt, TaskTitle: t.Title})
			}
		}
		rows = append(rows, item)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Task.Deadline.Before(rows[j].Task.Deadline)
	})
	sort.Slice(ratings, func(i, j int) bool {
		return ratings[i].Rating.CreatedAt.After(ratings[j].Rating.CreatedAt)
	})
	if len(ratings) > recentRatingsLimit {
		ratings = ratings[:recentRatingsLimit]
	}
	return rows, ratings, nil
}
