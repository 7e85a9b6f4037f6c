package user

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/omarhamed888/paths-dashboard/internal/domain"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) ListByRole(ctx context.Context, role string) ([]domain.User, error) {
	args := m.Called(ctx, role)
	if u, _ := args.Get(0).([]domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}
func (m *mockUserStore) Deactivate(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) DisableByUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockAttendanceStore struct{ mock.Mock }

func (m *mockAttendanceStore) History(ctx context.Context, userID string) ([]domain.AttendanceRecord, error) {
	args := m.Called(ctx, userID)
	if r, _ := args.Get(0).([]domain.AttendanceRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAssignmentStore struct{ mock.Mock }

func (m *mockAssignmentStore) ListByIntern(ctx context.Context, internID string) ([]domain.Assignment, error) {
	args := m.Called(ctx, internID)
	if a, _ := args.Get(0).([]domain.Assignment); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSubmissionStore struct{ mock.Mock }

func (m *mockSubmissionStore) GetByAssignment(ctx context.Context, assignmentID string) (*domain.Submission, error) {
	args := m.Called(ctx, assignmentID)
	if s, _ := args.Get(0).(*domain.Submission); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRatingStore struct{ mock.Mock }

func (m *mockRatingStore) Get(ctx context.Context, submissionID string) (*domain.Rating, error) {
	args := m.Called(ctx, submissionID)
	if r, _ := args.Get(0).(*domain.Rating); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPhotoStore struct{ mock.Mock }

func (m *mockPhotoStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	return m.Called(ctx, key, r, contentType).Error(0)
}
func (m *mockPhotoStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if rc, _ := args.Get(0).(io.ReadCloser); rc != nil {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

type fixture struct {
	users       *mockUserStore
	sessions    *mockSessionStore
	attendance  *mockAttendanceStore
	assignments *mockAssignmentStore
	submissions *mockSubmissionStore
	ratings     *mockRatingStore
	photos      *mockPhotoStore
	svc         Service
}

func newFixture() *fixture {
	f := &fixture{
		users:       &mockUserStore{},
		sessions:    &mockSessionStore{},
		attendance:  &mockAttendanceStore{},
		assignments: &mockAssignmentStore{},
		submissions: &mockSubmissionStore{},
		ratings:     &mockRatingStore{},
		photos:      &mockPhotoStore{},
	}
	f.svc = NewService(ServiceDeps{
		UserRepo:       f.users,
		SessionRepo:    f.sessions,
		AttendanceRepo: f.attendance,
		AssignmentRepo: f.assignments,
		SubmissionRepo: f.submissions,
		RatingRepo:     f.ratings,
		Photos:         f.photos,
	})
	return f
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// --- Create tests ---

func TestCreate_HashesPasswordAndDefaultsRole(t *testing.T) {
	f := newFixture()
	f.users.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, domain.ErrNotFound)
	f.users.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "new@example.com" &&
			u.Role == domain.RoleIntern &&
			u.IsActive &&
			u.PasswordHash != "secret-pass" &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret-pass")) == nil
	})).Return(nil)

	u, err := f.svc.Create(context.Background(), domain.CreateUserRequest{
		Email:    "new@example.com",
		Password: "secret-pass",
		FullName: "New Intern",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, u.UserID)
	f.users.AssertExpectations(t)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	f := newFixture()
	f.users.On("GetByEmail", mock.Anything, "taken@example.com").
		Return(&domain.User{UserID: "u1", Email: "taken@example.com"}, nil)

	_, err := f.svc.Create(context.Background(), domain.CreateUserRequest{
		Email:    "taken@example.com",
		Password: "secret-pass",
		FullName: "Someone",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	f.users.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

// --- Profile tests ---

func TestProfile_AdminHasNoStats(t *testing.T) {
	f := newFixture()
	f.users.On("Get", mock.Anything, "a1").
		Return(&domain.User{UserID: "a1", Role: domain.RoleAdmin}, nil)

	_, stats, err := f.svc.Profile(context.Background(), "a1")

	require.NoError(t, err)
	assert.Nil(t, stats)
	f.attendance.AssertNotCalled(t, "History", mock.Anything, mock.Anything)
}

func TestProfile_InternAggregatesStats(t *testing.T) {
	f := newFixture()
	f.users.On("Get", mock.Anything, "i1").
		Return(&domain.User{UserID: "i1", Role: domain.RoleIntern}, nil)
	f.attendance.On("History", mock.Anything, "i1").Return([]domain.AttendanceRecord{
		{Status: domain.AttendancePresent},
		{Status: domain.AttendanceAbsent},
	}, nil)
	f.assignments.On("ListByIntern", mock.Anything, "i1").Return([]domain.Assignment{
		{AssignmentID: "a1", Status: domain.AssignmentSubmitted},
		{AssignmentID: "a2", Status: domain.AssignmentLate},
		{AssignmentID: "a3", Status: domain.AssignmentAssigned},
	}, nil)
	f.submissions.On("GetByAssignment", mock.Anything, "a1").
		Return(&domain.Submission{SubmissionID: "s1"}, nil)
	f.submissions.On("GetByAssignment", mock.Anything, "a2").
		Return(&domain.Submission{SubmissionID: "s2"}, nil)
	f.submissions.On("GetByAssignment", mock.Anything, "a3").Return(nil, domain.ErrNotFound)
	f.ratings.On("Get", mock.Anything, "s1").Return(&domain.Rating{SubmissionID: "s1", Rating: 4}, nil)
	f.ratings.On("Get", mock.Anything, "s2").Return(nil, domain.ErrNotFound)

	_, stats, err := f.svc.Profile(context.Background(), "i1")

	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.Attendance.TotalDays)
	assert.Equal(t, 3, stats.Tasks.Total)
	assert.Equal(t, 2, stats.Tasks.Submitted)
	assert.Equal(t, 1, stats.Tasks.Late)
	require.NotNil(t, stats.AvgRating)
	assert.Equal(t, 4.0, *stats.AvgRating)
}

// --- UpdateProfile tests ---

func TestUpdateProfile_OnlyProvidedFields(t *testing.T) {
	f := newFixture()
	name := "Renamed"
	f.users.On("Update", mock.Anything, "u1", map[string]interface{}{"full_name": name}).Return(nil)
	f.users.On("Get", mock.Anything, "u1").
		Return(&domain.User{UserID: "u1", FullName: name}, nil)

	u, err := f.svc.UpdateProfile(context.Background(), "u1", domain.UpdateProfileRequest{FullName: &name})

	require.NoError(t, err)
	assert.Equal(t, name, u.FullName)
	f.users.AssertExpectations(t)
}

func TestUpdateProfile_NoFields_NoWrite(t *testing.T) {
	f := newFixture()
	f.users.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)

	_, err := f.svc.UpdateProfile(context.Background(), "u1", domain.UpdateProfileRequest{})

	require.NoError(t, err)
	f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

// --- ChangePassword tests ---

func TestChangePassword_WrongCurrent(t *testing.T) {
	f := newFixture()
	f.users.On("Get", mock.Anything, "u1").
		Return(&domain.User{UserID: "u1", PasswordHash: hash(t, "right")}, nil)

	err := f.svc.ChangePassword(context.Background(), "u1", "wrong", "brand-new-pass")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword_StoresNewHash(t *testing.T) {
	f := newFixture()
	f.users.On("Get", mock.Anything, "u1").
		Return(&domain.User{UserID: "u1", PasswordHash: hash(t, "old-pass")}, nil)
	f.users.On("Update", mock.Anything, "u1", mock.MatchedBy(func(updates map[string]interface{}) bool {
		h, ok := updates["password_hash"].(string)
		return ok && bcrypt.CompareHashAndPassword([]byte(h), []byte("brand-new-pass")) == nil
	})).Return(nil)

	err := f.svc.ChangePassword(context.Background(), "u1", "old-pass", "brand-new-pass")

	require.NoError(t, err)
	f.users.AssertExpectations(t)
}

// --- Photo tests ---

func TestPhoto_NoneUploaded(t *testing.T) {
	f := newFixture()
	f.users.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)

	_, err := f.svc.Photo(context.Background(), "u1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

// --- Delete tests ---

func TestDelete_DeactivatesAndDisablesSessions(t *testing.T) {
	f := newFixture()
	f.users.On("Deactivate", mock.Anything, "u1").Return(nil)
	f.sessions.On("DisableByUser", mock.Anything, "u1").Return(nil)

	err := f.svc.Delete(context.Background(), "u1")

	require.NoError(t, err)
	f.users.AssertExpectations(t)
	f.sessions.AssertExpectations(t)
}
