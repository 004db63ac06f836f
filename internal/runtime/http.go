package runtime

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/analyticsbase/internal/dispatch"
	idspkg "github.com/drblury/analyticsbase/internal/runtime/ids"
	jsoncodec "github.com/drblury/analyticsbase/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/analyticsbase/internal/runtime/logging"
	"github.com/drblury/analyticsbase/internal/storage"
)

// HTTP routes.
const (
	AnalyticsPath = "/analytics"
	HeartbeatPath = "/analytics/heartbeat"
	MetricsPath   = "/metrics"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Error codes returned in the "error" field of failed responses.
const (
	ErrorCodeDecode      = "decode_error"
	ErrorCodeTooLarge    = "body_too_large"
	ErrorCodeUnreadable  = "unreadable_body"
	ErrorCodeConflict    = "conflict"
	ErrorCodeStore       = "store_error"
	ErrorCodeUnavailable = "store_unavailable"
)

type requestIDKey struct{}

// RequestIDFromContext returns the request id set by the HTTP API, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Service) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.traceRequests)
	r.Use(s.logRequests)
	r.Use(chimiddleware.Recoverer)

	r.Post(AnalyticsPath, s.handleAnalytics)
	r.Get(HeartbeatPath, s.handleHeartbeat)
	if s.metrics != nil {
		r.Method(http.MethodGet, MetricsPath, s.metrics.Handler())
	}
	return r
}

func (s *Service) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.Conf.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, ErrorCodeTooLarge, "request body exceeds the configured limit")
			return
		}
		s.writeError(w, r, http.StatusBadRequest, ErrorCodeUnreadable, "failed to read request body")
		return
	}

	err = s.httpDispatcher.Handle(r.Context(), body)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case dispatch.IsDecodeError(err):
		s.writeError(w, r, http.StatusBadRequest, ErrorCodeDecode, err.Error())
	case storage.IsConflict(err):
		s.writeError(w, r, http.StatusInternalServerError, ErrorCodeConflict, "a message with this timestamp is already stored")
	case storage.IsUnavailable(err):
		s.writeError(w, r, http.StatusInternalServerError, ErrorCodeUnavailable, "storage is unavailable")
	default:
		s.writeError(w, r, http.StatusInternalServerError, ErrorCodeStore, "failed to store analytics message")
	}
}

func (s *Service) handleHeartbeat(w http.ResponseWriter, _ *http.Request) {
	if s.metrics != nil {
		s.metrics.heartbeats.Inc()
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := ErrorResponse{
		Error:     code,
		Message:   msg,
		RequestID: RequestIDFromContext(r.Context()),
	}
	if err := jsoncodec.Encode(w, body); err != nil {
		s.Logger.Error("Failed to write error response", err, loggingpkg.LogFields{"status": status})
	}
}

// requestIDMiddleware keeps a valid ULID supplied by the client and generates
// one otherwise.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := idspkg.RequestID(r.Header.Get(RequestIDHeader))
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (s *Service) traceRequests(next http.Handler) http.Handler {
	tracer := s.tracerProvider.Tracer(tracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.String("http.request.id", RequestIDFromContext(r.Context())),
			))
		defer span.End()

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	})
}

func (s *Service) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Logger.Debug("Handled HTTP request", loggingpkg.LogFields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  RequestIDFromContext(r.Context()),
		})
	})
}
