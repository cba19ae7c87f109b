package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
)

// redactedFields match by substring against lowercased header and JSON key
// names. Payment payloads carry gateway signatures and API secrets, so the
// list errs on the side of masking.
var redactedFields = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"signature",
	"key",
	"credential",
	"session",
	"auth",
}

const redactedPlaceholder = "[REDACTED]"

// LoggingMiddleware logs every request and its outcome. Request bodies are
// replayed after reading so handlers still see them; anything that looks
// like a credential is masked before it reaches the log.
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())

			var reqBody []byte
			if r.Body != nil {
				reqBody, _ = io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewReader(reqBody))
			}

			logger.Info("request received",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", redactHeaders(r.Header),
				"body", redactBody(reqBody),
			)

			ww := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(ww, r)

			status := ww.status
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "request completed",
				"request_id", reqID,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes_written", ww.written,
			)
		})
	}
}

// statusRecorder captures the status code and response size. The body itself
// is not retained: receipts and payment listings can be large and carry
// nothing worth logging.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.written += n
	return n, err
}

func isRedactedKey(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range redactedFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isRedactedKey(name) {
			out[name] = redactedPlaceholder
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// redactBody masks sensitive keys in a JSON body. Non-JSON bodies are logged
// verbatim unless they mention a sensitive field anywhere, in which case the
// whole body is dropped.
func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		if isRedactedKey(string(body)) {
			return redactedPlaceholder
		}
		return string(body)
	}

	masked, err := json.Marshal(redactValue(decoded))
	if err != nil {
		return redactedPlaceholder
	}
	return string(masked)
}

func redactValue(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isRedactedKey(key) {
				out[key] = redactedPlaceholder
			} else {
				out[key] = redactValue(value)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = redactValue(item)
		}
		return out
	default:
		return v
	}
}
