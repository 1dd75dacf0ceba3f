package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mnehpets/onerpc/endpoint"
)

// statusRecorder captures the status written by the renderer.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// AccessLog logs one line per request at info level. Place it after
// RequestID to include the request id.
//
// Failed requests are logged with the error; the status written for them
// by the endpoint handler is not known yet at that point.
func AccessLog(logger *slog.Logger) endpoint.Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return endpoint.ProcessorFunc(func(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		err := next(rec, r)

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration", time.Since(start)),
		}
		if id := RequestIDFromContext(r.Context()); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			logger.LogAttrs(r.Context(), slog.LevelWarn, "http request failed", attrs...)
			return err
		}
		attrs = append(attrs, slog.Int("status", rec.status), slog.Int("bytes", rec.bytes))
		logger.LogAttrs(r.Context(), slog.LevelInfo, "http request", attrs...)
		return nil
	})
}
