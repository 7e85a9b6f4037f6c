package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/omarhamed888/paths-dashboard/internal/application/alerts"
	"github.com/omarhamed888/paths-dashboard/internal/application/attendance"
	"github.com/omarhamed888/paths-dashboard/internal/application/auth"
	"github.com/omarhamed888/paths-dashboard/internal/application/dashboard"
	"github.com/omarhamed888/paths-dashboard/internal/application/notification"
	"github.com/omarhamed888/paths-dashboard/internal/application/session"
	"github.com/omarhamed888/paths-dashboard/internal/application/task"
	"github.com/omarhamed888/paths-dashboard/internal/application/user"
	"github.com/omarhamed888/paths-dashboard/internal/config"
	"github.com/omarhamed888/paths-dashboard/internal/domain"
	"github.com/omarhamed888/paths-dashboard/internal/transport/http/handler"
	appmiddleware "github.com/omarhamed888/paths-dashboard/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10, on sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	refreshTokenDur := time.Duration(cfg.RefreshTokenExpiryDays) * 24 * time.Hour

	engine := alerts.NewEngine(alerts.EngineDeps{
		Notifications: deps.NotificationRepo,
		Attendance:    deps.AttendanceRepo,
		Assignments:   deps.AssignmentRepo,
		Users:         deps.UserRepo,
		Mailer:        deps.Mailer,
	})

	sessionSvc := session.NewService(session.ServiceDeps{
		SessionRepo:     deps.SessionRepo,
		UserRepo:        deps.UserRepo,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenDur: refreshTokenDur,
	})
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:       deps.UserRepo,
		SessionRepo:    deps.SessionRepo,
		AttendanceRepo: deps.AttendanceRepo,
		AssignmentRepo: deps.AssignmentRepo,
		SubmissionRepo: deps.SubmissionRepo,
		RatingRepo:     deps.RatingRepo,
		Photos:         deps.S3Store,
	})
	attendanceSvc := attendance.NewService(deps.AttendanceRepo, deps.UserRepo, engine)
	taskSvc := task.NewService(task.ServiceDeps{
		TaskRepo:       deps.TaskRepo,
		AssignmentRepo: deps.AssignmentRepo,
		SubmissionRepo: deps.SubmissionRepo,
		RatingRepo:     deps.RatingRepo,
		UserRepo:       deps.UserRepo,
		Files:          deps.S3Store,
		Engine:         engine,
	})
	notifSvc := notification.NewService(deps.NotificationRepo)
	authSvc := auth.NewService(deps.VerificationRepo, deps.UserRepo, deps.SessionRepo, deps.Mailer, deps.SMSSender, deps.JWTProvider, refreshTokenDur)
	dashboardSvc := dashboard.NewService(dashboard.ServiceDeps{
		UserRepo:         deps.UserRepo,
		TaskRepo:         deps.TaskRepo,
		AssignmentRepo:   deps.AssignmentRepo,
		SubmissionRepo:   deps.SubmissionRepo,
		RatingRepo:       deps.RatingRepo,
		AttendanceRepo:   deps.AttendanceRepo,
		NotificationRepo: deps.NotificationRepo,
	})

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(sessionSvc)
	userH := handler.NewUserHandler(userSvc)
	attendanceH := handler.NewAttendanceHandler(attendanceSvc)
	taskH := handler.NewTaskHandler(taskSvc)
	notifH := handler.NewNotificationHandler(notifSvc)
	pwH := handler.NewPasswordRecoveryHandler(authSvc)
	dashboardH := handler.NewDashboardHandler(dashboardSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/password-recovery/{action}", pwH.Action)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)
			r.Post("/password-recovery/change-password", pwH.ChangePassword)

			r.Get("/users/me", userH.Me)
			r.Put("/users/me", userH.UpdateMe)
			r.Post("/users/me/password", userH.ChangePassword)
			r.Post("/users/me/photo", userH.UploadPhoto)
			r.Get("/users/{id}/photo", userH.Photo)

			r.Get("/notifications", notifH.List)
			r.Get("/notifications/unread-count", notifH.UnreadCount)
			r.Put("/notifications/read-all", notifH.MarkAllRead)
			r.Put("/notifications/{id}/read", notifH.MarkRead)

			r.Get("/dashboard/intern", dashboardH.Intern)
			r.Get("/dashboard/alerts", dashboardH.Alerts)

			// Role-dependent: admins get the team rollup, interns their own.
			r.Get("/attendance/summary", attendanceH.Summary)
			r.Get("/attendance/user/{id}", attendanceH.History)

			// Role-dependent: admins get all tasks, interns their own.
			r.Get("/tasks", taskH.List)
			r.Get("/tasks/{id}", taskH.Detail)
			r.Post("/tasks/submit/{id}", taskH.Submit)
			r.Get("/tasks/download/{id}", taskH.Download)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/users", userH.Create)
				r.Get("/users/interns", userH.ListInterns)
				r.Get("/users/interns/{id}", userH.Get)
				r.Delete("/users/{id}", userH.Delete)

				r.Post("/attendance", attendanceH.Mark)

				r.Post("/tasks", taskH.Create)
				r.Delete("/tasks/{id}", taskH.Delete)
				r.Post("/tasks/{id}/assign", taskH.Assign)
				r.Post("/tasks/rate/{id}", taskH.Rate)
				r.Post("/tasks/assignments/{id}/missed", taskH.MarkMissed)

				r.Get("/dashboard/admin", dashboardH.Admin)
			})
		})
	})

	return r
}
