// Package tts turns reply text into a playable MP3 under the public audio directory.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hajimehoshi/go-mp3"
	"github.com/sirupsen/logrus"

	"voice-negotiator-go/internal/logger"
	"voice-negotiator-go/internal/types"
)

// Synthesizer produces an audio artifact and returns its public path.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

const (
	DefaultBaseURL = "https://api.elevenlabs.io"
	DefaultVoiceID = "PKygEn0yFu7wfoOxDsFB"
	DefaultModelID = "eleven_multilingual_v1"
)

type Config struct {
	APIKey  string
	VoiceID string
	BaseURL string
	ModelID string
	// AudioDir is where finished files live; PublicPrefix is the URL path it is served under.
	AudioDir     string
	PublicPrefix string
	// StagingDir receives the partial download. Defaults to os.TempDir().
	StagingDir string
	Timeout    time.Duration
}

// ElevenLabs calls the text-to-speech REST endpoint. One request per call, no retries.
type ElevenLabs struct {
	cfg    Config
	client *http.Client
	log    *logrus.Entry
}

var _ Synthesizer = (*ElevenLabs)(nil)

func NewElevenLabs(cfg Config, log *logger.Logger) *ElevenLabs {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = DefaultVoiceID
	}
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID
	}
	if cfg.PublicPrefix == "" {
		cfg.PublicPrefix = "/static/audio"
	}
	if cfg.StagingDir == "" {
		cfg.StagingDir = os.TempDir()
	}
	return &ElevenLabs{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.Component("tts.elevenlabs"),
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	Language      string        `json:"language"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize renders text and returns e.g. "/static/audio/<id>.mp3".
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (string, error) {
	if e.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: elevenlabs api key not configured", types.ErrUpstream)
	}
	body, err := json.Marshal(synthesisRequest{
		Text:          text,
		ModelID:       e.cfg.ModelID,
		Language:      "es",
		VoiceSettings: voiceSettings{Stability: 0.4, SimilarityBoost: 1.0},
	})
	if err != nil {
		return "", fmt.Errorf("tts: encode request: %w", err)
	}

	endpoint := strings.TrimRight(e.cfg.BaseURL, "/") + "/v1/text-to-speech/" + e.cfg.VoiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("xi-api-key", e.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", types.Classify(fmt.Errorf("tts: request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		e.log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(excerpt),
		}).Warn("elevenlabs rejected synthesis request")
		return "", fmt.Errorf("%w: elevenlabs status %d", types.ErrUpstream, resp.StatusCode)
	}

	name := uuid.New().String() + ".mp3"
	final, err := e.store(resp.Body, name)
	if err != nil {
		return "", types.Classify(err)
	}

	entry := e.log.WithField("file", name)
	if d, err := probeDuration(final); err != nil {
		entry.WithError(err).Debug("could not probe mp3 duration")
	} else {
		entry = entry.WithField("duration_ms", d.Milliseconds())
	}
	entry.Info("synthesized reply audio")

	return path.Join(e.cfg.PublicPrefix, name), nil
}

// store streams r into a staging file and moves it into AudioDir.
func (e *ElevenLabs) store(r io.Reader, name string) (string, error) {
	if err := os.MkdirAll(e.cfg.AudioDir, 0o755); err != nil {
		return "", fmt.Errorf("tts: create audio dir: %w", err)
	}
	tmp, err := os.CreateTemp(e.cfg.StagingDir, "tts-*.part")
	if err != nil {
		return "", fmt.Errorf("tts: create staging file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("tts: read audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("tts: close staging file: %w", err)
	}

	final := filepath.Join(e.cfg.AudioDir, name)
	if err := moveFile(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("tts: publish audio: %w", err)
	}
	return final, nil
}

// moveFile renames src to dst, copying when they sit on different devices.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

func probeDuration(file string) (time.Duration, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, err
	}
	// decoded stream is 16-bit stereo: 4 bytes per sample frame
	frames := dec.Length() / 4
	if frames <= 0 || dec.SampleRate() == 0 {
		return 0, errors.New("unknown mp3 length")
	}
	return time.Duration(frames) * time.Second / time.Duration(dec.SampleRate()), nil
}
