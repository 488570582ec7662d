package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ObserveFunc receives every completed request, e.g. to feed metrics.
type ObserveFunc func(r *http.Request, status int, elapsed time.Duration)

// ResponseRecorder wraps http.ResponseWriter to capture status code and bytes written.
type ResponseRecorder struct {
	http.ResponseWriter
	Status       int
	BytesWritten int64
	wroteHeader  bool
}

func (rec *ResponseRecorder) WriteHeader(code int) {
	if !rec.wroteHeader {
		rec.Status = code
		rec.wroteHeader = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *ResponseRecorder) Write(b []byte) (int, error) {
	if !rec.wroteHeader {
		rec.WriteHeader(http.StatusOK)
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.BytesWritten += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rec *ResponseRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// AccessLog writes one "http_request" line per request. It must run inside
// RequestID so the line carries the request ID.
func AccessLog(logger *zap.Logger, observe ObserveFunc) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &ResponseRecorder{ResponseWriter: w, Status: http.StatusOK}

			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			logger.Info("http_request",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status", rec.Status),
				zap.Duration("duration", elapsed),
				zap.Int64("bytes", rec.BytesWritten),
			)
			if observe != nil {
				observe(r, rec.Status, elapsed)
			}
		})
	}
}
