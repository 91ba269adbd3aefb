package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/campuscare/grievance-management/internal"
	"github.com/campuscare/grievance-management/internal/transport"
	"github.com/campuscare/grievance-management/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, result)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.WriteSuccess(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto ChangePasswordDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.ChangePassword(r.Context(), user, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, result)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var dto ForgotPasswordDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.RequestReset(r.Context(), dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, nil)
}

func (h *Handler) CheckForgotCooldown(w http.ResponseWriter, r *http.Request) {
	var dto CheckCooldownDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := h.Service.CheckCooldown(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, status)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var dto ResetPasswordDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.ResetPassword(r.Context(), dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, nil)
}

// Logout acknowledges the client dropping its token. Tokens are stateless,
// so there is nothing to revoke server-side short of a password rotation.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware resolves the bearer token to a Session value once per
// request; downstream handlers read it from context, never from globals.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		user, err := h.Service.Verify(r.Context(), token)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}

		ctx := logger.With(ContextWithUser(r.Context(), user), "user_id", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// passwordChangeExempt lists the paths a user in the forced-password-change
// state may still reach.
func passwordChangeExempt(path string) bool {
	return strings.HasSuffix(path, "/auth/change-password") ||
		strings.HasSuffix(path, "/auth/verify") ||
		strings.HasSuffix(path, "/auth/logout")
}

// RequirePasswordChanged blocks every other authenticated call until the
// account leaves the MUST_CHANGE state.
func RequirePasswordChanged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || user == nil {
			writeAppError(w, internal.NewUnauthenticatedError("unauthorized", internal.ErrCodeInvalidToken))
			return
		}

		if user.ForcePasswordChange && !passwordChangeExempt(r.URL.Path) {
			writeAppError(w, internal.NewForbiddenError(
				"password change required before any other action",
				internal.ErrCodePasswordChangePending))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRole guards a route subtree to the given roles.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				writeAppError(w, internal.NewUnauthenticatedError("unauthorized", internal.ErrCodeInvalidToken))
				return
			}

			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			slog.Warn("access denied: role not permitted",
				"user_id", user.ID,
				"role", user.Role,
				"path", r.URL.Path)
			writeAppError(w, internal.ErrForbidden)
		})
	}
}

func writeAppError(w http.ResponseWriter, appErr *internal.AppError) {
	status, body := appErr.ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
