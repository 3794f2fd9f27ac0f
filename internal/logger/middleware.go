package logger

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// Completed is called once per request after the handler returns. pattern is
// the matched route, or "" when nothing matched.
type Completed func(r *http.Request, pattern string, status int, elapsed time.Duration)

// Middleware adds a request id to each request, stores a request-scoped
// logger in its context and writes one access log line when it finishes.
func Middleware(base *zap.Logger, done Completed) func(http.Handler) http.Handler {
	if base == nil {
		base = zap.L()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set(RequestIDHeader, requestID)

			reqLog := base.With(zap.String("request_id", requestID))
			req := r.WithContext(WithContext(r.Context(), reqLog))
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			startedAt := time.Now()
			next.ServeHTTP(rec, req)
			elapsed := time.Since(startedAt)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("latency", elapsed),
			}
			if rec.status >= http.StatusInternalServerError {
				reqLog.Warn("request finished", fields...)
			} else {
				reqLog.Info("request finished", fields...)
			}
			if done != nil {
				done(req, req.Pattern, rec.status, elapsed)
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
