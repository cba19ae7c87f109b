package middleware

import (
	"net/http"

	"github.com/rsharma-dev/order-settlement/pkg/logger"

	"github.com/google/uuid"
)

const traceHeader = "X-Trace-ID"

// RequestID honors an inbound X-Trace-ID or mints one, stamps it on the
// response, and binds it to the context logger so every log line for the
// request carries it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		w.Header().Set(traceHeader, traceID)

		ctx := logger.With(r.Context(), "traceID", traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
