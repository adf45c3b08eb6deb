package respond

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mini-task-manager/internal/model"
)

func TestListNeverOmitsData(t *testing.T) {
	rec := httptest.NewRecorder()
	List[model.Task](rec, nil, map[string]int{"total": 0})

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	data, ok := body["data"].([]any)
	if !ok || len(data) != 0 {
		t.Fatalf("data = %#v, want empty array", body["data"])
	}
	if body["success"] != true {
		t.Fatalf("success = %v", body["success"])
	}
}

func TestValidation(t *testing.T) {
	rec := httptest.NewRecorder()
	Validation(rec, model.FieldErrors{"title": {"Required"}})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Success || env.Error != "Validation failed" || env.Errors["title"][0] != "Required" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	var dst map[string]any
	if err := DecodeJSON(httptest.NewRecorder(), req, &dst); err != ErrInvalidJSON {
		t.Fatalf("err = %v, want ErrInvalidJSON", err)
	}
}

func TestWithLoggingRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := WithLogging(log, http.HandlerFunc(NotFound))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(buf.String(), `"status":404`) || !strings.Contains(buf.String(), `"path":"/nope"`) {
		t.Fatalf("log line = %s", buf.String())
	}
}
