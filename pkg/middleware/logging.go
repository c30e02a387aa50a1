package middleware

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/promptdesk/promptdesk/pkg/composables"
	"github.com/promptdesk/promptdesk/pkg/constants"
	"github.com/promptdesk/promptdesk/pkg/httpapi"
)

type statusRecordingResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecordingResponseWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
		w.ResponseWriter.WriteHeader(status)
	}
}

func (w *statusRecordingResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// RequestLogger attaches a request-scoped logrus entry to the context and
// logs each request on completion. Panicking handlers are recovered and
// reported as 500s.
func RequestLogger(logger *logrus.Logger, requestIDHeader string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			entry := logger.WithFields(logrus.Fields{
				"request_id": requestID,
				"method":     r.Method,
				"path":       r.URL.Path,
			})

			ctx := composables.WithLogger(r.Context(), entry)
			ctx = context.WithValue(ctx, constants.RequestIDKey, requestID)
			r = r.WithContext(ctx)

			rw := &statusRecordingResponseWriter{ResponseWriter: w}
			start := time.Now()

			defer func() {
				if rec := recover(); rec != nil {
					entry.WithFields(logrus.Fields{
						"panic": rec,
						"stack": string(debug.Stack()),
					}).Error("request handler panicked")
					if !rw.wroteHeader {
						_ = httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
					}
					return
				}
				entry.WithFields(logrus.Fields{
					"status":      rw.status,
					"duration_ms": time.Since(start).Milliseconds(),
				}).Info("request completed")
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
