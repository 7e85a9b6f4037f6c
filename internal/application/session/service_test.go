package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/omarhamed888/paths-dashboard/internal/domain"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

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

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) Update(ctx context.Context, sessionID string, updates map[string]interface{}) error {
	return m.Called(ctx, sessionID, updates).Error(0)
}
func (m *mockSessionStore) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error {
	return m.Called(ctx, sessionID, newToken, newExpiry).Error(0)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(userID, role, sessionID string) (string, error) {
	args := m.Called(userID, role, sessionID)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func newSvc(us *mockUserStore, ss *mockSessionStore, jwt *mockJWTSigner) Service {
	return NewService(ServiceDeps{
		SessionRepo:     ss,
		UserRepo:        us,
		JWTProvider:     jwt,
		RefreshTokenDur: 24 * time.Hour,
	})
}

func activeUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{
		UserID:       "user-123",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		Role:         domain.RoleIntern,
		IsActive:     true,
	}
}

// --- Login tests ---

func TestLogin_HappyPath(t *testing.T) {
	us, ss, jwt := &mockUserStore{}, &mockSessionStore{}, &mockJWTSigner{}

	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(activeUser(t, "secret123"), nil)
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	jwt.On("Sign", "user-123", domain.RoleIntern, mock.Anything).Return("bearer", nil)

	result, err := newSvc(us, ss, jwt).Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "secret123",
	})

	require.NoError(t, err)
	assert.Equal(t, "bearer", result.Bearer)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "user-123", result.Session.UserID)
	ss.AssertExpectations(t)
}

func TestLogin_UnknownEmail(t *testing.T) {
	us, ss, jwt := &mockUserStore{}, &mockSessionStore{}, &mockJWTSigner{}
	us.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, domain.ErrNotFound)

	_, err := newSvc(us, ss, jwt).Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_WrongPassword(t *testing.T) {
	us, ss, jwt := &mockUserStore{}, &mockSessionStore{}, &mockJWTSigner{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(activeUser(t, "secret123"), nil)

	_, err := newSvc(us, ss, jwt).Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	ss.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestLogin_DisabledAccount(t *testing.T) {
	us, ss, jwt := &mockUserStore{}, &mockSessionStore{}, &mockJWTSigner{}
	u := activeUser(t, "secret123")
	u.IsActive = false
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)

	_, err := newSvc(us, ss, jwt).Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "secret123",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

// --- GetCurrent tests ---

func TestGetCurrent_DisabledSession(t *testing.T) {
	us, ss, jwt := &mockUserStore{}, &mockSessionStore{}, &mockJWTSigner{}
	ss.On("Get", mock.Anything, "sess-1").Return(&domain.Session{SessionID: "sess-1", Enable: false}, nil)

	_, err := newSvc(us, ss, jwt).GetCurrent(context.Background(), "sess-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestGetCurrent_AttachesUser(t *testing.T) {
	us, ss, jwt := &mockUserStore{}, &mockSessionStore{}, &mockJWTSigner{}
	ss.On("Get", mock.Anything, "sess-1").Return(&domain.Session{SessionID: "sess-1", UserID: "user-123", Enable: true}, nil)
	us.On("Get", mock.Anything, "user-123").Return(&domain.User{UserID: "user-123", FullName: "Alice"}, nil)

	sess, err := newSvc(us, ss, jwt).GetCurrent(context.Background(), "sess-1")

	require.NoError(t, err)
	require.NotNil(t, sess.User)
	assert.Equal(t, "Alice", sess.User.FullName)
}

// --- Refresh tests ---

func TestRefresh_RotatesToken(t *testing.T) {
	us, ss, jwt := &mockUserStore{}, &mockSessionStore{}, &mockJWTSigner{}
	sess := &domain.Session{
		SessionID:        "sess-1",
		UserID:           "user-123",
		Enable:           true,
		RefreshExpiresAt: time.Now().Add(time.Hour).Unix(),
	}
	ss.On("GetByRefreshToken", mock.Anything, "old-token").Return(sess, nil)
	ss.On("RotateRefreshToken", mock.Anything, "sess-1", mock.Anything, mock.Anything).Return(nil)
	us.On("Get", mock.Anything, "user-123").Return(&domain.User{UserID: "user-123", Role: domain.RoleIntern}, nil)
	jwt.On("Sign", "user-123", domain.RoleIntern, "sess-1").Return("new-bearer", nil)

	bearer, newToken, err := newSvc(us, ss, jwt).Refresh(context.Background(), "old-token")

	require.NoError(t, err)
	assert.Equal(t, "new-bearer", bearer)
	assert.NotEmpty(t, newToken)
	assert.NotEqual(t, "old-token", newToken)
	ss.AssertExpectations(t)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	us, ss, jwt := &mockUserStore{}, &mockSessionStore{}, &mockJWTSigner{}
	sess := &domain.Session{
		SessionID:        "sess-1",
		UserID:           "user-123",
		Enable:           true,
		RefreshExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}
	ss.On("GetByRefreshToken", mock.Anything, "old-token").Return(sess, nil)

	_, _, err := newSvc(us, ss, jwt).Refresh(context.Background(), "old-token")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	ss.AssertNotCalled(t, "RotateRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_UnknownToken(t *testing.T) {
	us, ss, jwt := &mockUserStore{}, &mockSessionStore{}, &mockJWTSigner{}
	ss.On("GetByRefreshToken", mock.Anything, "bogus").Return(nil, domain.ErrNotFound)

	_, _, err := newSvc(us, ss, jwt).Refresh(context.Background(), "bogus")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}
