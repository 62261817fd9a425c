package metrics

import (
	"net/http"
	"strconv"
	"time"
)

// Middleware records HTTP request duration and count. Paths are labelled by
// the matched ServeMux pattern to bound cardinality.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, req)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(ww.status)
		path := normalizePath(req.Pattern)

		r.httpRequestDuration.WithLabelValues(req.Method, path, status).Observe(duration)
		r.httpRequestsTotal.WithLabelValues(req.Method, path, status).Inc()
	})
}

// normalizePath strips the method from a ServeMux pattern
func normalizePath(pattern string) string {
	if pattern == "" {
		return "unknown"
	}
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == ' ' {
			return pattern[i+1:]
		}
	}
	return pattern
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
