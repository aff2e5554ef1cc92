package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestContributorContext(t *testing.T) {
	ctx := context.Background()
	if got := GetContributor(ctx); got != "" {
		t.Errorf("GetContributor on empty context = %q", got)
	}

	ctx = SetContributor(ctx, "contrib-1")
	if got := GetContributor(ctx); got != "contrib-1" {
		t.Errorf("GetContributor = %q", got)
	}
}

func TestErrorCodeContext(t *testing.T) {
	ctx := SetErrorCode(context.Background(), "not_found")
	if got := GetErrorCode(ctx); got != "not_found" {
		t.Errorf("GetErrorCode = %q", got)
	}
	if got := GetErrorCode(context.Background()); got != "" {
		t.Errorf("GetErrorCode on empty context = %q", got)
	}
}

func TestResponseWriter_CapturesStatusAndSize(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK) // second call ignored
	n, err := rw.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write = %d, %v", n, err)
	}

	if rw.statusCode != http.StatusTeapot {
		t.Errorf("statusCode = %d", rw.statusCode)
	}
	if rw.size != 5 {
		t.Errorf("size = %d", rw.size)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("underlying recorder code = %d", rec.Code)
	}
}

func TestUpdateResponseContext_NonWrappedWriter(t *testing.T) {
	// Must be a no-op for writers this package did not wrap.
	UpdateResponseContext(httptest.NewRecorder(), context.Background())
}

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v (%s)", err, buf.String())
	}
	return entry
}

func TestLogging_Success(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/places", nil))

	entry := logLine(t, &buf)
	if entry["method"] != "GET" || entry["path"] != "/places" {
		t.Errorf("entry = %v", entry)
	}
	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("status = %v", entry["status"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v", entry["level"])
	}
	if _, ok := entry["error_code"]; ok {
		t.Error("error_code present on a 200 response")
	}
}

func TestLogging_ErrorCodeFromHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The WriteError path: push the updated context through the writer.
		ctx := SetErrorCode(r.Context(), "not_found")
		UpdateResponseContext(w, ctx)
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/places/missing", nil))

	entry := logLine(t, &buf)
	if entry["status"] != float64(http.StatusNotFound) {
		t.Errorf("status = %v", entry["status"])
	}
	if entry["error_code"] != "not_found" {
		t.Errorf("error_code = %v", entry["error_code"])
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestLogging_ServerErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if entry := logLine(t, &buf); entry["level"] != "ERROR" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestLogging_IncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestID(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	handler.ServeHTTP(rec, req)

	if entry := logLine(t, &buf); entry["request_id"] != "req-42" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
}
