package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"":      logrus.InfoLevel,
		"loud":  logrus.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONOutputOutsideLocal(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "production", "info")
	log.WithError(errors.New("boom")).Info("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if line["error"] != "boom" {
		t.Errorf("error field = %v, want boom", line["error"])
	}
	if line["service"] != "voice-negotiator-go" {
		t.Errorf("service field = %v", line["service"])
	}
}

func TestRequestIDPrefersHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/clientes", nil)
	r.Header.Set(RequestIDHeader, "abc-123")
	if got := RequestID(r); got != "abc-123" {
		t.Fatalf("RequestID = %q, want abc-123", got)
	}

	r2 := httptest.NewRequest(http.MethodGet, "/clientes", nil)
	if got := RequestID(r2); len(got) != 36 {
		t.Fatalf("expected generated uuid, got %q", got)
	}
}

func TestMiddlewareSetsRequestIDAndLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "production", "info")

	h := log.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cliente/999", nil))

	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header")
	}
	out := buf.String()
	if !strings.Contains(out, `"status":404`) || !strings.Contains(out, "request rejected") {
		t.Errorf("unexpected log output: %s", out)
	}
}
