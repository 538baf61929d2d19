package transcription

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"voice-negotiator-go/internal/logger"
	"voice-negotiator-go/internal/types"
)

func quiet() *logger.Logger { return logger.NewWithOutput(io.Discard, "test", "error") }

// copyConverter stands in for ffmpeg by copying bytes through.
type copyConverter struct{ err error }

func (c copyConverter) Convert(_ context.Context, src, dst string) error {
	if c.err != nil {
		return c.err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func newWhisperServer(t *testing.T, handler http.HandlerFunc) *Whisper {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	w, err := NewWhisper(srv.URL, "es-ES", 5*time.Second, quiet())
	if err != nil {
		t.Fatalf("NewWhisper: %v", err)
	}
	return w
}

func writeUpload(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "upload.webm")
	if err := os.WriteFile(p, []byte("RIFF-fake-audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestTranscribe(t *testing.T) {
	w := newWhisperServer(t, func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("language"); got != "es" {
			t.Errorf("language = %q, want es", got)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			data, _ := io.ReadAll(file)
			if string(data) != "RIFF-fake-audio" {
				t.Errorf("uploaded %q", data)
			}
		}
		_, _ = rw.Write([]byte(`{"text":"  Quiero pagar en cuotas.\n"}`))
	})

	tr := New(copyConverter{}, w, quiet())
	got, err := tr.Transcribe(context.Background(), writeUpload(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "Quiero pagar en cuotas." {
		t.Errorf("text = %q", got)
	}
}

func TestTranscribeErrors(t *testing.T) {
	tests := []struct {
		name    string
		conv    Converter
		handler http.HandlerFunc
		want    error
	}{
		{
			name:    "no speech",
			conv:    copyConverter{},
			handler: func(rw http.ResponseWriter, r *http.Request) { _, _ = rw.Write([]byte(`{"text":"   "}`)) },
			want:    types.ErrNoSpeech,
		},
		{
			name:    "server error",
			conv:    copyConverter{},
			handler: func(rw http.ResponseWriter, r *http.Request) { rw.WriteHeader(http.StatusInternalServerError) },
			want:    types.ErrUpstream,
		},
		{
			name:    "conversion failure",
			conv:    copyConverter{err: errors.New("invalid data found when processing input")},
			handler: func(rw http.ResponseWriter, r *http.Request) { t.Error("recognizer should not be called") },
			want:    types.ErrUpstream,
		},
		{
			name:    "conversion deadline",
			conv:    copyConverter{err: context.DeadlineExceeded},
			handler: func(rw http.ResponseWriter, r *http.Request) {},
			want:    types.ErrTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(tt.conv, newWhisperServer(t, tt.handler), quiet())
			got, err := tr.Transcribe(context.Background(), writeUpload(t))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if got != "" {
				t.Errorf("text = %q, want empty", got)
			}
		})
	}
}

func TestBaseLanguage(t *testing.T) {
	tests := map[string]string{"es-ES": "es", "es": "es", "pt-BR": "pt", "??": "auto"}
	for in, want := range tests {
		if got := baseLanguage(in); got != want {
			t.Errorf("baseLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWaitReady(t *testing.T) {
	var calls atomic.Int32
	w := newWhisperServer(t, func(rw http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			rw.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		rw.WriteHeader(http.StatusOK)
	})
	if err := w.WaitReady(context.Background(), 10*time.Second); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("probes = %d, want 3", n)
	}
}

func TestWaitReadyGivesUp(t *testing.T) {
	w := newWhisperServer(t, func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusBadGateway)
	})
	if err := w.WaitReady(context.Background(), 300*time.Millisecond); err == nil {
		t.Fatal("expected WaitReady to give up")
	}
}

func TestFFmpegMissingBinary(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.wav")
	err := FFmpeg{Path: filepath.Join(t.TempDir(), "no-ffmpeg")}.Convert(context.Background(), writeUpload(t), dst)
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestNewWhisperRequiresURL(t *testing.T) {
	if _, err := NewWhisper("", "es-ES", time.Second, quiet()); err == nil {
		t.Fatal("expected error")
	}
}
