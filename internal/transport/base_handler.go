package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	errors "github.com/rsharma-dev/order-settlement/internal"
	"github.com/rsharma-dev/order-settlement/pkg/logger"
)

// BaseHandler carries the response plumbing every HTTP handler shares:
// JSON encoding, error mapping, and bearer-token extraction.
type BaseHandler struct {
	Logger *slog.Logger
}

func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &BaseHandler{Logger: lg}
}

func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Error("http error", "status", status, "message", message)
	h.WriteJSON(w, status, map[string]interface{}{
		"code":    status,
		"message": message,
	})
}

// HandleServiceError maps service errors onto HTTP responses: AppErrors
// carry their own status and payload, anything else is a 500 with no
// detail leaked to the client.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	appErr, ok := errors.IsAppError(err)
	if !ok {
		h.Logger.Error("unexpected error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status, payload := appErr.ToHTTPResponse()
	h.Logger.Warn("request failed",
		"status", status,
		"code", appErr.Code,
		"message", appErr.Message)
	h.WriteJSON(w, status, payload)
}

// HandleError writes an error response for a known error value.
func (h *BaseHandler) HandleError(w http.ResponseWriter, err error) {
	h.HandleServiceError(w, err)
}

// ExtractTokenFromHeader returns the bearer token from the Authorization
// header, or "" when the header is absent or malformed.
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return token
}
