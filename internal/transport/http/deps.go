package http

import (
	"github.com/omarhamed888/paths-dashboard/internal/infrastructure/dynamo"
	jwtinfra "github.com/omarhamed888/paths-dashboard/internal/infrastructure/jwt"
	s3infra "github.com/omarhamed888/paths-dashboard/internal/infrastructure/s3"
	"github.com/omarhamed888/paths-dashboard/internal/infrastructure/smtp"
	"github.com/omarhamed888/paths-dashboard/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	SessionRepo      *dynamo.SessionRepo
	AttendanceRepo   *dynamo.AttendanceRepo
	TaskRepo         *dynamo.TaskRepo
	AssignmentRepo   *dynamo.AssignmentRepo
	SubmissionRepo   *dynamo.SubmissionRepo
	RatingRepo       *dynamo.RatingRepo
	NotificationRepo *dynamo.NotificationRepo
	VerificationRepo *dynamo.VerificationRepo
	S3Store          *s3infra.Store
	Mailer           smtp.Mailer
	SMSSender        sns.SMSSender
	JWTProvider      *jwtinfra.Provider
}
