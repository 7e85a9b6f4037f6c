package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/omarhamed888/paths-dashboard/internal/domain"
)

type Service interface {
	Mark(ctx context.Context, req domain.MarkAttendanceRequest) (*domain.AttendanceRecord, error)
	History(ctx context.Context, callerID, callerRole, userID string) ([]domain.AttendanceRecord, error)
	InternSummary(ctx context.Context, userID string) (*domain.AttendanceSummary, error)
	TeamSummary(ctx context.Context) (*domain.TeamAttendanceSummary, error)
}

type attendanceStore interface {
	Put(ctx context.Context, rec *domain.AttendanceRecord) error
	History(ctx context.Context, userID string) ([]domain.AttendanceRecord, error)
	ScanSince(ctx context.Context, since string) ([]domain.AttendanceRecord, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	ListByRole(ctx context.Context, role string) ([]domain.User, error)
}

type ruleEngine interface {
	OnAttendanceMarked(ctx context.Context, intern *domain.User, rec *domain.AttendanceRecord)
}

// teamSummaryDays is the lookback for the admin-wide attendance rollup.
const teamSummaryDays = 30

type service struct {
	repo     attendanceStore
	userRepo userStore
	engine   ruleEngine
}

func NewService(repo attendanceStore, userRepo userStore, engine ruleEngine) Service {
	return &service{repo: repo, userRepo: userRepo, engine: engine}
}

// Mark records attendance for a user on a day. The (user, date) key makes
// this an upsert: correcting a day overwrites the earlier record. The
// absence rule runs after the write and never fails it.
func (s *service) Mark(ctx context.Context, req domain.MarkAttendanceRequest) (*domain.AttendanceRecord, error) {
	u, err := s.userRepo.Get(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if u.Role != domain.RoleIntern {
		return nil, fmt.Errorf("attendance is tracked for interns only: %w", domain.ErrBadRequest)
	}
	rec := &domain.AttendanceRecord{
		UserID:      req.UserID,
		Date:        req.Date,
		Status:      req.Status,
		CheckInTime: req.CheckInTime,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Put(ctx, rec); err != nil {
		return nil, err
	}
	s.engine.OnAttendanceMarked(ctx, u, rec)
	return rec, nil
}

func (s *service) History(ctx context.Context, callerID, callerRole, userID string) ([]domain.AttendanceRecord, error) {
	if callerRole != domain.RoleAdmin && callerID != userID {
		return nil, fmt.Errorf("cannot view another user's attendance: %w", domain.ErrForbidden)
	}
	return s.repo.History(ctx, userID)
}

func (s *service) InternSummary(ctx context.Context, userID string) (*domain.AttendanceSummary, error) {
	records, err := s.repo.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := &domain.AttendanceSummary{}
	for _, rec := range records {
		tally(&summary.TotalDays, &summary.PresentDays, &summary.AbsentDays, &summary.LateDays, rec.Status)
	}
	return summary, nil
}

// TeamSummary aggregates all intern attendance over the trailing 30 days.
func (s *service) TeamSummary(ctx context.Context) (*domain.TeamAttendanceSummary, error) {
	interns, err := s.userRepo.ListByRole(ctx, domain.RoleIntern)
	if err != nil {
		return nil, err
	}
	since := time.Now().UTC().AddDate(0, 0, -teamSummaryDays).Format(domain.DateLayout)
	records, err := s.repo.ScanSince(ctx, since)
	if err != nil {
		return nil, err
	}
	summary := &domain.TeamAttendanceSummary{TotalInterns: len(interns)}
	for _, rec := range records {
		tally(&summary.TotalRecords, &summary.TotalPresent, &summary.TotalAbsent, &summary.TotalLate, rec.Status)
	}
	return summary, nil
}

func tally(total, present, absentCount, late *int, status string) {
	*total++
	switch status {
	case domain.AttendancePresent:
		*present++
	case domain.AttendanceAbsent:
		*absentCount++
	case domain.AttendanceLate:
		*late++
	}
}
