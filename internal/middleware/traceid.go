package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/portalautarca/portal/internal/ctxkeys"
)

const TraceIDHeader = "X-Trace-ID"

// TraceID tags each request with an id, reusing a valid incoming X-Trace-ID.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceIDHeader)
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.New().String()
		}

		w.Header().Set(TraceIDHeader, traceID)
		next.ServeHTTP(w, r.WithContext(ctxkeys.WithTraceID(r.Context(), traceID)))
	})
}
