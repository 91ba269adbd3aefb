package rest

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/campuscare/grievance-management/internal/auth"
	"github.com/campuscare/grievance-management/internal/complaint"
	"github.com/campuscare/grievance-management/internal/transport/middleware"
	"github.com/campuscare/grievance-management/internal/transport/swagger"
	"github.com/campuscare/grievance-management/internal/user"
)

// RegisterAllRoutes wires the full HTTP surface. Role gates live on the
// route tree; record-level scoping happens again in the services, so a
// mis-mounted route cannot widen anyone's view.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	redisClient *redis.Client,
	authHandler *auth.Handler,
	userHandler *user.Handler,
	complaintHandler *complaint.Handler,
	allowedOrigins string,
	requestTimeout time.Duration,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db, redisClient)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.Timeout(requestTimeout))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", authHandler.Login)
			sr.Post("/forgot-password", authHandler.ForgotPassword)
			sr.Post("/check-forgot-cooldown", authHandler.CheckForgotCooldown)
			sr.Post("/reset-password", authHandler.ResetPassword)

			sr.Group(func(ar chi.Router) {
				ar.Use(authHandler.AuthMiddleware)
				ar.Get("/verify", authHandler.Verify)
				ar.Post("/change-password", authHandler.ChangePassword)
				ar.Post("/logout", authHandler.Logout)
			})
		})

		// Everything below requires a session and, except the exempt auth
		// paths above, a completed password change.
		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)
			pr.Use(auth.RequirePasswordChanged)

			pr.Route("/admin", func(ad chi.Router) {
				ad.Use(auth.RequireRole(auth.RoleAdmin))
				registerStaffComplaintRoutes(ad, complaintHandler)
				registerUserRoutes(ad, userHandler)
			})

			pr.Route("/sub-admin", func(sa chi.Router) {
				sa.Use(auth.RequireRole(auth.RoleSubAdmin))
				registerStaffComplaintRoutes(sa, complaintHandler)
				registerUserRoutes(sa, userHandler)
			})

			pr.Route("/student", func(st chi.Router) {
				st.Use(auth.RequireRole(auth.RoleStudent))
				registerOwnerComplaintRoutes(st, complaintHandler)
			})

			pr.Route("/employee", func(em chi.Router) {
				em.Use(auth.RequireRole(auth.RoleEmployee))
				registerOwnerComplaintRoutes(em, complaintHandler)
			})
		})
	})
}

func registerStaffComplaintRoutes(r chi.Router, h *complaint.Handler) {
	r.Route("/complaints", func(cr chi.Router) {
		cr.Get("/", h.List)
		cr.Get("/{id}", h.Get)
		cr.Patch("/{id}/status", h.UpdateStatus)
		cr.Post("/{id}/reopen", h.Reopen)
	})
}

func registerOwnerComplaintRoutes(r chi.Router, h *complaint.Handler) {
	r.Route("/complaints", func(cr chi.Router) {
		cr.Post("/", h.Submit)
		cr.Get("/", h.List)
		cr.Get("/{id}", h.Get)
		cr.Post("/{id}/rating", h.Rate)
		cr.Post("/{id}/acknowledge", h.Acknowledge)
	})
}

func registerUserRoutes(r chi.Router, h *user.Handler) {
	r.Route("/users", func(ur chi.Router) {
		ur.Post("/", h.Create)
		ur.Post("/bulk", h.BulkCreate)
		ur.Get("/", h.List)
		ur.Get("/{id}", h.Get)
		ur.Patch("/{id}", h.Update)
		ur.Delete("/{id}", h.Deactivate)
	})
}
