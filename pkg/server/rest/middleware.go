package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mpapenbr/fantasy-league-service/log"
)

const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext returns the id assigned by the request id middleware
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// an incoming id is kept so callers can correlate their own logs
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.requestLogger(r).Error("handler panicked",
					log.String("method", r.Method),
					log.String("path", r.URL.Path),
					log.Any("panic", v),
					log.Stack("stack"))
				if rec.status == 0 {
					writeError(rec, http.StatusInternalServerError, msgInternalError)
				}
			}
		}()
		next.ServeHTTP(rec, r)
	})
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		panicked := true
		defer func() {
			status := rec.status
			switch {
			case panicked:
				status = http.StatusInternalServerError
			case status == 0:
				status = http.StatusOK
			}
			duration := time.Since(start)
			s.metrics.record(r.Method, route, status, duration)
			s.requestLogger(r).Debug("request",
				log.String("route", route),
				log.Int("status", status),
				log.Int("bytes", rec.bytes),
				log.Duration("duration", duration))
		}()
		next.ServeHTTP(rec, r)
		panicked = false
	})
}

func (s *Server) requestLogger(r *http.Request) *log.Logger {
	if id := RequestIDFromContext(r.Context()); id != "" {
		return s.log.With(log.String("requestId", id))
	}
	return s.log
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}
