// Package trace tags each request with an id and reports its outcome.
package trace

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

type contextKey string

const requestIDKey contextKey = "request_id"

// Completion describes a finished request.
type Completion struct {
	Request   *http.Request
	RequestID string
	Route     string
	Status    int
	Duration  time.Duration
}

// Middleware assigns request ids and calls Enrich before and Done after
// every request. It should sit directly in front of the ServeMux so the
// matched route pattern is visible once the handler returns.
type Middleware struct {
	// Enrich may add values to the request context, such as a logger.
	Enrich func(ctx context.Context, requestID string) context.Context
	// Done receives every completed request.
	Done func(Completion)
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := incomingID(r.Header.Get(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		if m.Enrich != nil {
			ctx = m.Enrich(ctx, id)
		}
		r = r.WithContext(ctx)

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		if m.Done != nil {
			m.Done(Completion{
				Request:   r,
				RequestID: id,
				Route:     Route(r),
				Status:    rw.status,
				Duration:  time.Since(start),
			})
		}
	})
}

// incomingID accepts a caller supplied id when it is short and printable.
func incomingID(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 64 {
		return ""
	}
	for _, c := range s {
		if c < 0x21 || c > 0x7e {
			return ""
		}
	}
	return s
}

// Route is the matched ServeMux pattern, or "unmatched".
func Route(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
