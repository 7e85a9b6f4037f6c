package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/omarhamed888/paths-dashboard/internal/domain"
	"github.com/omarhamed888/paths-dashboard/internal/pkg/id"
	pkgtoken "github.com/omarhamed888/paths-dashboard/internal/pkg/token"
)

// verificationRecovery is the sort key for password recovery codes.
const verificationRecovery = "recovery"

const otpTTL = 15 * time.Minute

type PasswordRecoveryRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ValidateOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

type ChangePasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type Service interface {
	RequestPasswordRecovery(ctx context.Context, req PasswordRecoveryRequest) error
	ValidateOTP(ctx context.Context, req ValidateOTPRequest) (bearer, refreshToken string, session *domain.Session, err error)
	ResetPassword(ctx context.Context, userID, newPassword string) error
}

type verificationStore interface {
	Put(ctx context.Context, v *domain.UserVerification) error
	Get(ctx context.Context, userID, verType string) (*domain.UserVerification, error)
	Delete(ctx context.Context, userID, verType string) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type jwtSigner interface {
	Sign(userID, role, sessionID string) (string, error)
}

type service struct {
	verifications   verificationStore
	users           userStore
	sessions        sessionStore
	mailer          mailer
	sms             smsSender // optional, nil disables SMS delivery
	jwtProvider     jwtSigner
	refreshTokenDur time.Duration
}

func NewService(
	verifications verificationStore,
	users userStore,
	sessions sessionStore,
	m mailer,
	sms smsSender,
	jwtProvider jwtSigner,
	refreshTokenDur time.Duration,
) Service {
	return &service{
		verifications:   verifications,
		users:           users,
		sessions:        sessions,
		mailer:          m,
		sms:             sms,
		jwtProvider:     jwtProvider,
		refreshTokenDur: refreshTokenDur,
	}
}

// RequestPasswordRecovery emails a short-lived OTP to the account, with an
// SMS copy when a phone number is on file.
func (s *service) RequestPasswordRecovery(ctx context.Context, req PasswordRecoveryRequest) error {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	otp, err := generateOTP()
	if err != nil {
		return err
	}
	v := &domain.UserVerification{
		UserID:    u.UserID,
		Type:      verificationRecovery,
		Code:      otp,
		ExpiresAt: time.Now().Add(otpTTL).Unix(),
	}
	if err := s.verifications.Put(ctx, v); err != nil {
		return err
	}
	if err := s.mailer.SendEmail(u.Email, "Password Recovery OTP", "Your OTP: "+otp); err != nil {
		return err
	}
	if s.sms != nil && u.Phone != nil {
		if err := s.sms.SendSMS(ctx, *u.Phone, "Your OTP: "+otp); err != nil {
			slog.Warn("failed to send recovery SMS", "user_id", u.UserID, "err", err)
		}
	}
	return nil
}

// ValidateOTP exchanges a valid OTP for a fresh session so the user can set a
// new password while logged in. The OTP is single use.
func (s *service) ValidateOTP(ctx context.Context, req ValidateOTPRequest) (string, string, *domain.Session, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return "", "", nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	v, err := s.verifications.Get(ctx, u.UserID, verificationRecovery)
	if err != nil {
		return "", "", nil, fmt.Errorf("OTP not found: %w", domain.ErrNotFound)
	}
	if v.Code != req.OTP {
		return "", "", nil, fmt.Errorf("invalid OTP: %w", domain.ErrUnauthorized)
	}
	if v.ExpiresAt < time.Now().Unix() {
		return "", "", nil, fmt.Errorf("OTP expired: %w", domain.ErrUnauthorized)
	}
	if err := s.verifications.Delete(ctx, u.UserID, verificationRecovery); err != nil {
		slog.Warn("failed to delete recovery OTP", "user_id", u.UserID, "err", err)
	}

	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return "", "", nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return "", "", nil, err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, u.Role, sess.SessionID)
	if err != nil {
		return "", "", nil, err
	}
	sess.User = u
	return bearer, refreshToken, sess, nil
}

func (s *service) ResetPassword(ctx context.Context, userID, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.Update(ctx, userID, map[string]interface{}{"password_hash": string(hash)})
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
