package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLogging_CapturesStatusAndPath(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/predict", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	out := buf.String()
	if !strings.Contains(out, "status=201") {
		t.Errorf("log output missing status: %s", out)
	}
	if !strings.Contains(out, "path=/predict") {
		t.Errorf("log output missing path: %s", out)
	}
}

func TestLogging_ErrorCodePropagation(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := SetErrorCode(r.Context(), "validation_error")
		UpdateResponseContext(w, ctx)
		w.WriteHeader(http.StatusBadRequest)
	}))

	req := httptest.NewRequest(http.MethodPost, "/initialize-payment", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !strings.Contains(buf.String(), "error_code=validation_error") {
		t.Errorf("log output missing error code: %s", buf.String())
	}
}

func TestLogging_DefaultStatus200(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("implicit 200"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !strings.Contains(buf.String(), "status=200") {
		t.Errorf("log output missing default status: %s", buf.String())
	}
}

func TestErrorCodeContext(t *testing.T) {
	ctx := context.Background()
	if GetErrorCode(ctx) != "" {
		t.Error("GetErrorCode on empty context should be empty")
	}

	ctx = SetErrorCode(ctx, "internal_error")
	if got := GetErrorCode(ctx); got != "internal_error" {
		t.Errorf("GetErrorCode() = %q, want internal_error", got)
	}
}
