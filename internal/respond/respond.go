// Package respond writes the {success, data, meta, error, errors} envelope
// every API endpoint answers with.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"mini-task-manager/internal/model"
)

const maxBodyBytes = 1 << 20

// Envelope is the shape of every response body.
type Envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Meta    any               `json:"meta,omitempty"`
	Error   string            `json:"error,omitempty"`
	Errors  model.FieldErrors `json:"errors,omitempty"`
}

var ErrInvalidJSON = errors.New("Invalid JSON body")

// DecodeJSON reads a single JSON value from the request body. Unknown
// fields are ignored.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return ErrInvalidJSON
	}
	_, _ = io.Copy(io.Discard, r.Body)
	return nil
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// List writes a page of data. Data is never omitted, even when empty.
func List[T any](w http.ResponseWriter, data []T, meta any) {
	if data == nil {
		data = []T{}
	}
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Meta: meta})
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Envelope{Success: false, Error: msg})
}

func Validation(w http.ResponseWriter, fe model.FieldErrors) {
	JSON(w, http.StatusBadRequest, Envelope{Success: false, Error: "Validation failed", Errors: fe})
}

// Internal logs err and answers with a generic 500.
func Internal(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	Error(w, http.StatusInternalServerError, "Internal server error")
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	Error(w, http.StatusNotFound, "Route not found")
}

// WithLogging logs one line per request.
func WithLogging(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Info("http", "method", r.Method, "path", r.URL.Path, "status", sw.status, "dur_ms", time.Since(start).Milliseconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }
