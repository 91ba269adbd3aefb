package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/campuscare/grievance-management/internal"
	"github.com/campuscare/grievance-management/pkg/logger"
)

// BaseHandler provides the shared response envelope. Success responses are
// {success:true, data:...}; failures are {success:false, message, error}.
type BaseHandler struct {
	Logger *slog.Logger
}

func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.L()
	}
	return &BaseHandler{Logger: lg}
}

func (h *BaseHandler) WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	body := map[string]interface{}{"success": true}
	if data != nil {
		body["data"] = data
	}
	h.writeJSON(w, status, body)
}

func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Warn("http error", "status", status, "message", message)
	h.writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// HandleServiceError translates an AppError into the wire envelope; anything
// else is masked as Unavailable so internals never leak.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		h.Logger.Error("unclassified service error", "error", err)
		appErr = internal.NewUnavailableError("service temporarily unavailable", err)
	} else if appErr.StatusCode >= http.StatusInternalServerError {
		h.Logger.Error("service error", "error", appErr.Error(), "code", appErr.Code)
	} else {
		h.Logger.Warn("request rejected", "code", appErr.Code, "message", appErr.GetDetailedMessage())
	}

	body := map[string]interface{}{
		"success": false,
		"kind":    appErr.Type,
		"message": appErr.Message,
		"error":   appErr,
	}
	if details, ok := appErr.Details.(internal.ValidationErrors); ok {
		body["errors"] = details.Errors
	}
	if details, ok := appErr.Details.(internal.CooldownDetails); ok {
		body["data"] = details
	}

	h.writeJSON(w, appErr.StatusCode, body)
}

func (h *BaseHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// ExtractTokenFromHeader pulls the bearer token from the Authorization header.
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
		return ""
	}
	return authHeader[7:]
}
