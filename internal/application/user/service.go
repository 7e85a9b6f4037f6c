package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/omarhamed888/paths-dashboard/internal/domain"
	"github.com/omarhamed888/paths-dashboard/internal/pkg/id"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldFullName     = "full_name"
	fieldBio          = "bio"
	fieldDepartment   = "department"
	fieldPhone        = "phone"
	fieldPasswordHash = "password_hash"
	fieldPhotoKey     = "photo_key"
)

type Service interface {
	Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	ListInterns(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Profile(ctx context.Context, userID string) (*domain.User, *domain.InternStats, error)
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	UploadPhoto(ctx context.Context, userID string, r io.Reader, contentType string) error
	Photo(ctx context.Context, userID string) (io.ReadCloser, error)
	Delete(ctx context.Context, userID string) error
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByRole(ctx context.Context, role string) ([]domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	Deactivate(ctx context.Context, userID string) error
}

type sessionStore interface {
	DisableByUser(ctx context.Context, userID string) error
}

type attendanceStore interface {
	History(ctx context.Context, userID string) ([]domain.AttendanceRecord, error)
}

type assignmentStore interface {
	ListByIntern(ctx context.Context, internID string) ([]domain.Assignment, error)
}

type submissionStore interface {
	GetByAssignment(ctx context.Context, assignmentID string) (*domain.Submission, error)
}

type ratingStore interface {
	Get(ctx context.Context, submissionID string) (*domain.Rating, error)
}

type photoStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

type service struct {
	repo           userStore
	sessionRepo    sessionStore
	attendanceRepo attendanceStore
	assignmentRepo assignmentStore
	submissionRepo submissionStore
	ratingRepo     ratingStore
	photos         photoStore
}

type ServiceDeps struct {
	UserRepo       userStore
	SessionRepo    sessionStore
	AttendanceRepo attendanceStore
	AssignmentRepo assignmentStore
	SubmissionRepo submissionStore
	RatingRepo     ratingStore
	Photos         photoStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:           deps.UserRepo,
		sessionRepo:    deps.SessionRepo,
		attendanceRepo: deps.AttendanceRepo,
		assignmentRepo: deps.AssignmentRepo,
		submissionRepo: deps.SubmissionRepo,
		ratingRepo:     deps.RatingRepo,
		photos:         deps.Photos,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = domain.RoleIntern
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Department:   req.Department,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) ListInterns(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListByRole(ctx, domain.RoleIntern)
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

// Profile returns the user plus, for interns, their attendance, task and
// rating aggregates. Admin profiles carry no stats.
func (s *service) Profile(ctx context.Context, userID string) (*domain.User, *domain.InternStats, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if u.Role != domain.RoleIntern {
		return u, nil, nil
	}
	stats, err := s.internStats(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return u, stats, nil
}

func (s *service) internStats(ctx context.Context, internID string) (*domain.InternStats, error) {
	records, err := s.attendanceRepo.History(ctx, internID)
	if err != nil {
		return nil, err
	}
	stats := &domain.InternStats{}
	for _, rec := range records {
		stats.Attendance.TotalDays++
		switch rec.Status {
		case domain.AttendancePresent:
			stats.Attendance.PresentDays++
		case domain.AttendanceAbsent:
			stats.Attendance.AbsentDays++
		case domain.AttendanceLate:
			stats.Attendance.LateDays++
		}
	}

	assignments, err := s.assignmentRepo.ListByIntern(ctx, internID)
	if err != nil {
		return nil, err
	}
	var ratingSum, ratingCount int
	for _, a := range assignments {
		stats.Tasks.Total++
		switch a.Status {
		case domain.AssignmentSubmitted:
			stats.Tasks.Submitted++
		case domain.AssignmentLate:
			stats.Tasks.Submitted++
			stats.Tasks.Late++
		case domain.AssignmentMissed:
			stats.Tasks.Missed++
		}
		sub, err := s.submissionRepo.GetByAssignment(ctx, a.AssignmentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		rating, err := s.ratingRepo.Get(ctx, sub.SubmissionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		ratingSum += rating.Rating
		ratingCount++
	}
	if ratingCount > 0 {
		avg := float64(ratingSum) / float64(ratingCount)
		stats.AvgRating = &avg
	}
	return stats, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error) {
	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates[fieldFullName] = *req.FullName
	}
	if req.Bio != nil {
		updates[fieldBio] = *req.Bio
	}
	if req.Department != nil {
		updates[fieldDepartment] = *req.Department
	}
	if req.Phone != nil {
		updates[fieldPhone] = *req.Phone
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, userID)
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)); err != nil {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, userID, map[string]interface{}{fieldPasswordHash: string(hash)})
}

func (s *service) UploadPhoto(ctx context.Context, userID string, r io.Reader, contentType string) error {
	key := fmt.Sprintf("photos/%s", userID)
	if err := s.photos.Upload(ctx, key, r, contentType); err != nil {
		return err
	}
	return s.repo.Update(ctx, userID, map[string]interface{}{fieldPhotoKey: key})
}

func (s *service) Photo(ctx context.Context, userID string) (io.ReadCloser, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.PhotoKey == "" {
		return nil, fmt.Errorf("no photo: %w", domain.ErrNotFound)
	}
	return s.photos.Download(ctx, u.PhotoKey)
}

// Delete deactivates the account and disables its sessions. The record stays
// so historical submissions and notifications keep resolving their author.
func (s *service) Delete(ctx context.Context, userID string) error {
	if err := s.repo.Deactivate(ctx, userID); err != nil {
		return err
	}
	return s.sessionRepo.DisableByUser(ctx, userID)
}
