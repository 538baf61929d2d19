package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"voice-negotiator-go/internal/logger"
)

// Recognizer turns a canonical WAV file into text.
type Recognizer interface {
	Recognize(ctx context.Context, wavPath string) (string, error)
}

// Whisper talks to a whisper.cpp server's /inference endpoint.
type Whisper struct {
	serverURL string
	language  string
	client    *http.Client
	log       *logrus.Entry
}

var _ Recognizer = (*Whisper)(nil)

// NewWhisper builds a recognizer for serverURL. locale is a BCP 47 tag such
// as "es-ES"; only its base language is sent.
func NewWhisper(serverURL, locale string, timeout time.Duration, log *logger.Logger) (*Whisper, error) {
	if serverURL == "" {
		return nil, errors.New("transcription: whisper server url must not be empty")
	}
	return &Whisper{
		serverURL: strings.TrimRight(serverURL, "/"),
		language:  baseLanguage(locale),
		client:    &http.Client{Timeout: timeout},
		log:       log.Component("transcription.whisper"),
	}, nil
}

func baseLanguage(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return "auto"
	}
	base, _ := tag.Base()
	return base.String()
}

type inferenceResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

func (w *Whisper) Recognize(ctx context.Context, wavPath string) (string, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return "", fmt.Errorf("transcription: open wav: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return "", fmt.Errorf("transcription: create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return "", fmt.Errorf("transcription: copy wav: %w", err)
	}
	_ = mw.WriteField("language", w.language)
	_ = mw.WriteField("response_format", "json")
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("transcription: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.serverURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("transcription: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("transcription: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		w.log.WithField("status", resp.StatusCode).Warn("whisper server rejected audio")
		return "", fmt.Errorf("transcription: server status %d: %s", resp.StatusCode, truncate(raw, 256))
	}
	var out inferenceResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("transcription: decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("transcription: server error: %s", out.Error)
	}
	return strings.TrimSpace(out.Text), nil
}

// Ping performs a single reachability probe.
func (w *Whisper) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.serverURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("whisper server status %d", resp.StatusCode)
	}
	return nil
}

// WaitReady polls the server with exponential backoff until it answers or
// budget elapses. It is only used at startup, never per interaction.
func (w *Whisper) WaitReady(ctx context.Context, budget time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = budget

	attempt := 0
	op := func() error {
		attempt++
		err := w.Ping(ctx)
		if err != nil {
			w.log.WithError(err).WithField("attempt", attempt).Debug("whisper server not ready")
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("transcription: whisper server not ready after %d attempts: %w", attempt, err)
	}
	w.log.WithField("attempts", attempt).Info("whisper server ready")
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

