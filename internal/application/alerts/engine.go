package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/omarhamed888/paths-dashboard/internal/domain"
	"github.com/omarhamed888/paths-dashboard/internal/pkg/id"
)

// Alert thresholds and dedup windows. Dedup keeps a rule from re-firing on
// every write while the underlying condition persists.
const (
	consecutiveAbsences = 2
	lateMissedThreshold = 2
	lowRatingThreshold  = 3

	absenceDedupWindow     = 3 * 24 * time.Hour
	performanceDedupWindow = 7 * 24 * time.Hour

	// performanceMarker identifies performance-accumulation alerts among other
	// system/critical notifications during the dedup lookback.
	performanceMarker = "late or missed"
)

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	ExistsSince(ctx context.Context, recipientID, category, severity, messageContains string, since time.Time) (bool, error)
}

type attendanceStore interface {
	Latest(ctx context.Context, userID, upTo string, limit int32) ([]domain.AttendanceRecord, error)
}

type assignmentStore interface {
	CountByStatus(ctx context.Context, internID string, statuses ...string) (int, error)
}

type userDirectory interface {
	ListByRole(ctx context.Context, role string) ([]domain.User, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

// Engine evaluates notification rules after attendance, submission and rating
// writes. Evaluation is best effort: a failed rule never fails the write that
// triggered it, so every error is logged and swallowed.
type Engine struct {
	notifications notificationStore
	attendance    attendanceStore
	assignments   assignmentStore
	users         userDirectory
	mailer        mailer // optional, nil disables email copies
	now           func() time.Time
}

type EngineDeps struct {
	Notifications notificationStore
	Attendance    attendanceStore
	Assignments   assignmentStore
	Users         userDirectory
	Mailer        mailer
}

func NewEngine(deps EngineDeps) *Engine {
	return &Engine{
		notifications: deps.Notifications,
		attendance:    deps.Attendance,
		assignments:   deps.Assignments,
		users:         deps.Users,
		mailer:        deps.Mailer,
		now:           time.Now,
	}
}

// OnAttendanceMarked runs the consecutive-absence rule. When the two most
// recent records up to rec.Date are both absences, the intern gets a critical
// alert and every admin gets a copy. Consecutive means adjacent records, not
// adjacent calendar days: a gap with no record at all does not break the run.
func (e *Engine) OnAttendanceMarked(ctx context.Context, intern *domain.User, rec *domain.AttendanceRecord) {
	if rec.Status != domain.AttendanceAbsent {
		return
	}
	records, err := e.attendance.Latest(ctx, intern.UserID, rec.Date, consecutiveAbsences)
	if err != nil {
		slog.Warn("absence rule: fetch attendance failed", "user_id", intern.UserID, "err", err)
		return
	}
	if len(records) < consecutiveAbsences {
		return
	}
	for _, r := range records {
		if r.Status != domain.AttendanceAbsent {
			return
		}
	}

	since := e.now().Add(-absenceDedupWindow)
	exists, err := e.notifications.ExistsSince(ctx, intern.UserID, domain.CategoryAttendance, domain.SeverityCritical, "", since)
	if err != nil {
		slog.Warn("absence rule: dedup check failed", "user_id", intern.UserID, "err", err)
		return
	}
	if exists {
		return
	}

	e.notify(ctx, intern.UserID, domain.CategoryAttendance, domain.SeverityCritical,
		"Critical: Consecutive Absences",
		"You have been absent for 2 consecutive days. Please contact your supervisor immediately.")
	e.emailCopy(intern,
		"Critical: Consecutive Absences",
		"You have been absent for 2 consecutive days. Please contact your supervisor immediately.")

	e.notifyAdmins(ctx, domain.CategoryAttendance, domain.SeverityCritical,
		"Alert: Intern Consecutive Absences",
		fmt.Sprintf("%s has been absent for 2 consecutive days.", intern.FullName))
}

// OnTaskAssigned sends an informational notification to each newly assigned intern.
func (e *Engine) OnTaskAssigned(ctx context.Context, task *domain.Task, internIDs []string) {
	message := fmt.Sprintf("New task assigned: %s. Deadline: %s", task.Title, task.Deadline.Format("2006-01-02"))
	for _, internID := range internIDs {
		e.notify(ctx, internID, domain.CategoryTask, domain.SeverityInfo, "New Task Assigned", message)
	}
}

// OnSubmissionReceived tells admins about the new submission, then runs the
// performance-accumulation rule.
func (e *Engine) OnSubmissionReceived(ctx context.Context, intern *domain.User, task *domain.Task, isLate bool) {
	severity := domain.SeverityInfo
	message := fmt.Sprintf("%s submitted: %s", intern.FullName, task.Title)
	if isLate {
		severity = domain.SeverityWarning
		message += " (Late)"
	}
	e.notifyAdmins(ctx, domain.CategoryTask, severity, "New Task Submission", message)

	e.checkPerformance(ctx, intern)
}

// checkPerformance runs the performance-accumulation rule: once an intern's
// late plus missed assignments reach the threshold, the intern gets a
// critical alert and admins a warning, at most once per dedup window.
func (e *Engine) checkPerformance(ctx context.Context, intern *domain.User) {
	count, err := e.assignments.CountByStatus(ctx, intern.UserID, domain.AssignmentLate, domain.AssignmentMissed)
	if err != nil {
		slog.Warn("performance rule: count failed", "user_id", intern.UserID, "err", err)
		return
	}
	if count < lateMissedThreshold {
		return
	}

	since := e.now().Add(-performanceDedupWindow)
	exists, err := e.notifications.ExistsSince(ctx, intern.UserID, domain.CategorySystem, domain.SeverityCritical, performanceMarker, since)
	if err != nil {
		slog.Warn("performance rule: dedup check failed", "user_id", intern.UserID, "err", err)
		return
	}
	if exists {
		return
	}

	e.notify(ctx, intern.UserID, domain.CategorySystem, domain.SeverityCritical,
		"Performance Alert",
		"You have multiple late or missed task submissions. This requires immediate attention and improvement.")
	e.emailCopy(intern,
		"Performance Alert",
		"You have multiple late or missed task submissions. This requires immediate attention and improvement.")

	e.notifyAdmins(ctx, domain.CategorySystem, domain.SeverityWarning,
		"Intern Performance Alert",
		fmt.Sprintf("%s has multiple late or missed submissions and may need additional support.", intern.FullName))
}

// OnSubmissionRated warns the intern when a rating lands below the threshold,
// then runs the performance-accumulation rule so late/missed totals that grew
// since the last submission (an admin marking work missed, say) still alert.
// The low-rating rule has no dedup: re-rating a submission re-evaluates it.
func (e *Engine) OnSubmissionRated(ctx context.Context, intern *domain.User, taskTitle string, rating int) {
	if rating < lowRatingThreshold {
		e.notify(ctx, intern.UserID, domain.CategoryRating, domain.SeverityWarning,
			"Performance Warning",
			fmt.Sprintf("Your submission for %q received a low rating (%d/5). Please review the feedback and improve.", taskTitle, rating))
	}
	e.checkPerformance(ctx, intern)
}

func (e *Engine) notify(ctx context.Context, recipientID, category, severity, title, message string) {
	n := &domain.Notification{
		NotificationID: id.New(),
		RecipientID:    recipientID,
		Category:       category,
		Title:          title,
		Message:        message,
		Severity:       severity,
		CreatedAt:      e.now().UTC(),
	}
	if err := e.notifications.Put(ctx, n); err != nil {
		slog.Warn("failed to store notification", "recipient_id", recipientID, "title", title, "err", err)
	}
}

func (e *Engine) notifyAdmins(ctx context.Context, category, severity, title, message string) {
	admins, err := e.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		slog.Warn("failed to list admins for notification", "title", title, "err", err)
		return
	}
	for _, admin := range admins {
		e.notify(ctx, admin.UserID, category, severity, title, message)
	}
}

// emailCopy mirrors a critical alert to the intern's inbox. Best effort.
func (e *Engine) emailCopy(u *domain.User, subject, body string) {
	if e.mailer == nil {
		return
	}
	if err := e.mailer.SendEmail(u.Email, subject, body); err != nil {
		slog.Warn("failed to send alert email", "user_id", u.UserID, "err", err)
	}
}
