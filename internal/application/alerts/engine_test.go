package alerts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/omarhamed888/paths-dashboard/internal/domain"
)

// --- mocks ---

type mockNotificationStore struct{ mock.Mock }

func (m *mockNotificationStore) Put(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockNotificationStore) ExistsSince(ctx context.Context, recipientID, category, severity, messageContains string, since time.Time) (bool, error) {
	args := m.Called(ctx, recipientID, category, severity, messageContains, since)
	return args.Bool(0), args.Error(1)
}

type mockAttendanceStore struct{ mock.Mock }

func (m *mockAttendanceStore) Latest(ctx context.Context, userID, upTo string, limit int32) ([]domain.AttendanceRecord, error) {
	args := m.Called(ctx, userID, upTo, limit)
	if r, _ := args.Get(0).([]domain.AttendanceRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAssignmentStore struct{ mock.Mock }

func (m *mockAssignmentStore) CountByStatus(ctx context.Context, internID string, statuses ...string) (int, error) {
	args := m.Called(ctx, internID, statuses)
	return args.Int(0), args.Error(1)
}

type mockUserDirectory struct{ mock.Mock }

func (m *mockUserDirectory) ListByRole(ctx context.Context, role string) ([]domain.User, error) {
	args := m.Called(ctx, role)
	if u, _ := args.Get(0).([]domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

// --- helpers ---

type fixture struct {
	ns  *mockNotificationStore
	as  *mockAttendanceStore
	asn *mockAssignmentStore
	ud  *mockUserDirectory
	ml  *mockMailer
	eng *Engine
}

func newFixture() *fixture {
	f := &fixture{
		ns:  &mockNotificationStore{},
		as:  &mockAttendanceStore{},
		asn: &mockAssignmentStore{},
		ud:  &mockUserDirectory{},
		ml:  &mockMailer{},
	}
	f.eng = NewEngine(EngineDeps{
		Notifications: f.ns,
		Attendance:    f.as,
		Assignments:   f.asn,
		Users:         f.ud,
		Mailer:        f.ml,
	})
	return f
}

func intern() *domain.User {
	return &domain.User{
		UserID:   "intern-1",
		Email:    "intern@example.com",
		FullName: "Omar Hamed",
		Role:     domain.RoleIntern,
	}
}

func admins(n int) []domain.User {
	out := make([]domain.User, n)
	for i := range out {
		out[i] = domain.User{UserID: "admin-" + string(rune('1'+i)), Role: domain.RoleAdmin}
	}
	return out
}

func absent(date string) domain.AttendanceRecord {
	return domain.AttendanceRecord{UserID: "intern-1", Date: date, Status: domain.AttendanceAbsent}
}

func notifFor(recipientID, category, severity string) interface{} {
	return mock.MatchedBy(func(n *domain.Notification) bool {
		return n.RecipientID == recipientID && n.Category == category && n.Severity == severity
	})
}

// --- consecutive absence rule ---

func TestAbsenceRule_TwoConsecutiveAbsences_NotifiesInternAndAllAdmins(t *testing.T) {
	f := newFixture()
	rec := absent("2026-03-10")

	f.as.On("Latest", mock.Anything, "intern-1", "2026-03-10", int32(2)).
		Return([]domain.AttendanceRecord{absent("2026-03-10"), absent("2026-03-09")}, nil)
	f.ns.On("ExistsSince", mock.Anything, "intern-1", domain.CategoryAttendance, domain.SeverityCritical, "", mock.Anything).
		Return(false, nil)
	f.ns.On("Put", mock.Anything, notifFor("intern-1", domain.CategoryAttendance, domain.SeverityCritical)).Return(nil).Once()
	f.ml.On("SendEmail", "intern@example.com", mock.Anything, mock.Anything).Return(nil).Once()
	f.ud.On("ListByRole", mock.Anything, domain.RoleAdmin).Return(admins(2), nil)
	f.ns.On("Put", mock.Anything, notifFor("admin-1", domain.CategoryAttendance, domain.SeverityCritical)).Return(nil).Once()
	f.ns.On("Put", mock.Anything, notifFor("admin-2", domain.CategoryAttendance, domain.SeverityCritical)).Return(nil).Once()

	f.eng.OnAttendanceMarked(context.Background(), intern(), &rec)

	f.ns.AssertExpectations(t)
	f.ml.AssertExpectations(t)
}

func TestAbsenceRule_AdminMessageNamesIntern(t *testing.T) {
	f := newFixture()
	rec := absent("2026-03-10")

	f.as.On("Latest", mock.Anything, "intern-1", "2026-03-10", int32(2)).
		Return([]domain.AttendanceRecord{absent("2026-03-10"), absent("2026-03-09")}, nil)
	f.ns.On("ExistsSince", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(false, nil)
	f.ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.ud.On("ListByRole", mock.Anything, domain.RoleAdmin).Return(admins(1), nil)

	var adminMsg string
	f.ns.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).
		Run(func(args mock.Arguments) {
			n := args.Get(1).(*domain.Notification)
			if n.RecipientID == "admin-1" {
				adminMsg = n.Message
			}
		}).Return(nil)

	f.eng.OnAttendanceMarked(context.Background(), intern(), &rec)

	assert.Equal(t, "Omar Hamed has been absent for 2 consecutive days.", adminMsg)
}

func TestAbsenceRule_PresentRecord_NoOp(t *testing.T) {
	f := newFixture()
	rec := domain.AttendanceRecord{UserID: "intern-1", Date: "2026-03-10", Status: domain.AttendancePresent}

	f.eng.OnAttendanceMarked(context.Background(), intern(), &rec)

	f.as.AssertNotCalled(t, "Latest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.ns.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestAbsenceRule_SingleRecord_NoOp(t *testing.T) {
	f := newFixture()
	rec := absent("2026-03-10")

	f.as.On("Latest", mock.Anything, "intern-1", "2026-03-10", int32(2)).
		Return([]domain.AttendanceRecord{absent("2026-03-10")}, nil)

	f.eng.OnAttendanceMarked(context.Background(), intern(), &rec)

	f.ns.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestAbsenceRule_RunBrokenByPresence_NoOp(t *testing.T) {
	f := newFixture()
	rec := absent("2026-03-10")

	f.as.On("Latest", mock.Anything, "intern-1", "2026-03-10", int32(2)).
		Return([]domain.AttendanceRecord{
			absent("2026-03-10"),
			{UserID: "intern-1", Date: "2026-03-09", Status: domain.AttendancePresent},
		}, nil)

	f.eng.OnAttendanceMarked(context.Background(), intern(), &rec)

	f.ns.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestAbsenceRule_DedupSuppressesRefire(t *testing.T) {
	f := newFixture()
	rec := absent("2026-03-11")

	f.as.On("Latest", mock.Anything, "intern-1", "2026-03-11", int32(2)).
		Return([]domain.AttendanceRecord{absent("2026-03-11"), absent("2026-03-10")}, nil)
	f.ns.On("ExistsSince", mock.Anything, "intern-1", domain.CategoryAttendance, domain.SeverityCritical, "", mock.Anything).
		Return(true, nil)

	f.eng.OnAttendanceMarked(context.Background(), intern(), &rec)

	f.ns.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	f.ud.AssertNotCalled(t, "ListByRole", mock.Anything, mock.Anything)
}

func TestAbsenceRule_StoreErrorSwallowed(t *testing.T) {
	f := newFixture()
	rec := absent("2026-03-10")

	f.as.On("Latest", mock.Anything, "intern-1", "2026-03-10", int32(2)).
		Return(nil, errors.New("dynamo down"))

	// Must not panic and must not notify.
	f.eng.OnAttendanceMarked(context.Background(), intern(), &rec)

	f.ns.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

// --- task assignment notifications ---

func TestTaskAssigned_NotifiesEachIntern(t *testing.T) {
	f := newFixture()
	task := &domain.Task{
		TaskID:   "task-1",
		Title:    "Weekly report",
		Deadline: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
	}

	f.ns.On("Put", mock.Anything, notifFor("intern-1", domain.CategoryTask, domain.SeverityInfo)).Return(nil).Once()
	f.ns.On("Put", mock.Anything, notifFor("intern-2", domain.CategoryTask, domain.SeverityInfo)).Return(nil).Once()

	f.eng.OnTaskAssigned(context.Background(), task, []string{"intern-1", "intern-2"})

	f.ns.AssertExpectations(t)
}

func TestTaskAssigned_MessageIncludesTitleAndDeadline(t *testing.T) {
	f := newFixture()
	task := &domain.Task{
		TaskID:   "task-1",
		Title:    "Weekly report",
		Deadline: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
	}

	var msg string
	f.ns.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).
		Run(func(args mock.Arguments) { msg = args.Get(1).(*domain.Notification).Message }).
		Return(nil)

	f.eng.OnTaskAssigned(context.Background(), task, []string{"intern-1"})

	assert.Equal(t, "New task assigned: Weekly report. Deadline: 2026-03-20", msg)
}

// --- submission notifications + performance rule ---

func submittedTask() *domain.Task {
	return &domain.Task{TaskID: "task-1", Title: "Weekly report"}
}

func TestSubmissionReceived_OnTime_AdminsGetInfo(t *testing.T) {
	f := newFixture()

	f.ud.On("ListByRole", mock.Anything, domain.RoleAdmin).Return(admins(1), nil)
	f.ns.On("Put", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.RecipientID == "admin-1" &&
			n.Severity == domain.SeverityInfo &&
			n.Message == "Omar Hamed submitted: Weekly report"
	})).Return(nil).Once()
	f.asn.On("CountByStatus", mock.Anything, "intern-1", []string{domain.AssignmentLate, domain.AssignmentMissed}).
		Return(0, nil)

	f.eng.OnSubmissionReceived(context.Background(), intern(), submittedTask(), false)

	f.ns.AssertExpectations(t)
}

func TestSubmissionReceived_Late_AdminsGetWarningWithLateSuffix(t *testing.T) {
	f := newFixture()

	f.ud.On("ListByRole", mock.Anything, domain.RoleAdmin).Return(admins(1), nil)
	f.ns.On("Put", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.Severity == domain.SeverityWarning && strings.HasSuffix(n.Message, "(Late)")
	})).Return(nil).Once()
	f.asn.On("CountByStatus", mock.Anything, "intern-1", []string{domain.AssignmentLate, domain.AssignmentMissed}).
		Return(1, nil)

	f.eng.OnSubmissionReceived(context.Background(), intern(), submittedTask(), true)

	f.ns.AssertExpectations(t)
}

func TestPerformanceRule_ThresholdReached_AlertsInternAndAdmins(t *testing.T) {
	f := newFixture()

	f.ud.On("ListByRole", mock.Anything, domain.RoleAdmin).Return(admins(1), nil)
	f.asn.On("CountByStatus", mock.Anything, "intern-1", []string{domain.AssignmentLate, domain.AssignmentMissed}).
		Return(2, nil)
	f.ns.On("ExistsSince", mock.Anything, "intern-1", domain.CategorySystem, domain.SeverityCritical, "late or missed", mock.Anything).
		Return(false, nil)

	// submission info + intern critical + admin warning
	f.ns.On("Put", mock.Anything, notifFor("admin-1", domain.CategoryTask, domain.SeverityInfo)).Return(nil).Once()
	f.ns.On("Put", mock.Anything, notifFor("intern-1", domain.CategorySystem, domain.SeverityCritical)).Return(nil).Once()
	f.ns.On("Put", mock.Anything, notifFor("admin-1", domain.CategorySystem, domain.SeverityWarning)).Return(nil).Once()
	f.ml.On("SendEmail", "intern@example.com", "Performance Alert", mock.Anything).Return(nil).Once()

	f.eng.OnSubmissionReceived(context.Background(), intern(), submittedTask(), false)

	f.ns.AssertExpectations(t)
	f.ml.AssertExpectations(t)
}

func TestPerformanceRule_InternAlertMentionsMarker(t *testing.T) {
	f := newFixture()

	f.ud.On("ListByRole", mock.Anything, domain.RoleAdmin).Return(admins(0), nil)
	f.asn.On("CountByStatus", mock.Anything, "intern-1", mock.Anything).Return(3, nil)
	f.ns.On("ExistsSince", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(false, nil)
	f.ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	var internMsg string
	f.ns.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).
		Run(func(args mock.Arguments) {
			n := args.Get(1).(*domain.Notification)
			if n.RecipientID == "intern-1" {
				internMsg = n.Message
			}
		}).Return(nil)

	f.eng.OnSubmissionReceived(context.Background(), intern(), submittedTask(), false)

	// The dedup gate greps for this fragment, so the alert text must keep it.
	assert.Contains(t, internMsg, performanceMarker)
}

func TestPerformanceRule_BelowThreshold_NoAlert(t *testing.T) {
	f := newFixture()

	f.ud.On("ListByRole", mock.Anything, domain.RoleAdmin).Return(admins(1), nil)
	f.ns.On("Put", mock.Anything, notifFor("admin-1", domain.CategoryTask, domain.SeverityInfo)).Return(nil).Once()
	f.asn.On("CountByStatus", mock.Anything, "intern-1", mock.Anything).Return(1, nil)

	f.eng.OnSubmissionReceived(context.Background(), intern(), submittedTask(), false)

	f.ns.AssertNotCalled(t, "ExistsSince", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.ns.AssertExpectations(t)
}

func TestPerformanceRule_DedupSuppressesRefire(t *testing.T) {
	f := newFixture()

	f.ud.On("ListByRole", mock.Anything, domain.RoleAdmin).Return(admins(1), nil)
	f.ns.On("Put", mock.Anything, notifFor("admin-1", domain.CategoryTask, domain.SeverityInfo)).Return(nil).Once()
	f.asn.On("CountByStatus", mock.Anything, "intern-1", mock.Anything).Return(2, nil)
	f.ns.On("ExistsSince", mock.Anything, "intern-1", domain.CategorySystem, domain.SeverityCritical, "late or missed", mock.Anything).
		Return(true, nil)

	f.eng.OnSubmissionReceived(context.Background(), intern(), submittedTask(), false)

	// Only the submission notification, no performance alerts.
	f.ns.AssertNumberOfCalls(t, "Put", 1)
}

// --- low rating rule ---

func TestSubmissionRated_LowRating_WarnsIntern(t *testing.T) {
	f := newFixture()

	var got *domain.Notification
	f.ns.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).
		Run(func(args mock.Arguments) { got = args.Get(1).(*domain.Notification) }).
		Return(nil).Once()
	f.asn.On("CountByStatus", mock.Anything, "intern-1", mock.Anything).Return(0, nil)

	f.eng.OnSubmissionRated(context.Background(), intern(), "Weekly report", 2)

	f.ns.AssertExpectations(t)
	assert.Equal(t, "intern-1", got.RecipientID)
	assert.Equal(t, domain.CategoryRating, got.Category)
	assert.Equal(t, domain.SeverityWarning, got.Severity)
	assert.Contains(t, got.Message, `"Weekly report"`)
	assert.Contains(t, got.Message, "(2/5)")
}

func TestSubmissionRated_AtThreshold_NoWarning(t *testing.T) {
	f := newFixture()

	f.asn.On("CountByStatus", mock.Anything, "intern-1", mock.Anything).Return(0, nil)

	f.eng.OnSubmissionRated(context.Background(), intern(), "Weekly report", 3)

	f.ns.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestSubmissionRated_TopRating_NoWarning(t *testing.T) {
	f := newFixture()

	f.asn.On("CountByStatus", mock.Anything, "intern-1", mock.Anything).Return(0, nil)

	f.eng.OnSubmissionRated(context.Background(), intern(), "Weekly report", 5)

	f.ns.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

// Late/missed totals can grow without a submission event, an admin marking
// work missed for instance. The next rating write still has to surface that.
func TestSubmissionRated_RunsPerformanceRule(t *testing.T) {
	f := newFixture()

	f.asn.On("CountByStatus", mock.Anything, "intern-1", []string{domain.AssignmentLate, domain.AssignmentMissed}).
		Return(2, nil)
	f.ns.On("ExistsSince", mock.Anything, "intern-1", domain.CategorySystem, domain.SeverityCritical, "late or missed", mock.Anything).
		Return(false, nil)
	f.ud.On("ListByRole", mock.Anything, domain.RoleAdmin).Return(admins(1), nil)
	f.ns.On("Put", mock.Anything, notifFor("intern-1", domain.CategorySystem, domain.SeverityCritical)).Return(nil).Once()
	f.ns.On("Put", mock.Anything, notifFor("admin-1", domain.CategorySystem, domain.SeverityWarning)).Return(nil).Once()
	f.ml.On("SendEmail", "intern@example.com", "Performance Alert", mock.Anything).Return(nil).Once()

	// Good rating: no low-rating warning, only the performance alerts.
	f.eng.OnSubmissionRated(context.Background(), intern(), "Weekly report", 4)

	f.ns.AssertExpectations(t)
	f.ml.AssertExpectations(t)
	f.ns.AssertNumberOfCalls(t, "Put", 2)
}

func TestSubmissionRated_PerformanceDedupSuppressesRefire(t *testing.T) {
	f := newFixture()

	f.asn.On("CountByStatus", mock.Anything, "intern-1", mock.Anything).Return(2, nil)
	f.ns.On("ExistsSince", mock.Anything, "intern-1", domain.CategorySystem, domain.SeverityCritical, "late or missed", mock.Anything).
		Return(true, nil)

	f.eng.OnSubmissionRated(context.Background(), intern(), "Weekly report", 4)

	f.ns.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestNotify_PutErrorDoesNotPanic(t *testing.T) {
	f := newFixture()

	f.ns.On("Put", mock.Anything, mock.Anything).Return(errors.New("dynamo down"))
	f.asn.On("CountByStatus", mock.Anything, "intern-1", mock.Anything).Return(0, nil)

	f.eng.OnSubmissionRated(context.Background(), intern(), "Weekly report", 1)
}
