// Package middleware provides HTTP middleware for TaskGate.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Strob0t/taskgate/internal/logger"
)

// HeaderTraceID carries the request trace ID in both directions.
const HeaderTraceID = "X-Trace-Id"

const maxTraceIDLen = 128

// TraceID is HTTP middleware that takes X-Trace-Id from the request header
// or generates a UUID. The ID is stored in the context and echoed on the
// response header.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderTraceID)
		if id == "" || len(id) > maxTraceIDLen {
			id = uuid.NewString()
		}

		ctx := logger.WithTraceID(r.Context(), id)
		w.Header().Set(HeaderTraceID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
