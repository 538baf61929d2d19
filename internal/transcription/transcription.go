// Package transcription converts uploaded recordings to text: the upload is
// normalized to 16 kHz mono WAV and sent to a speech recognizer.
package transcription

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"voice-negotiator-go/internal/logger"
	"voice-negotiator-go/internal/types"
)

// Converter rewrites src into the canonical WAV format at dst.
type Converter interface {
	Convert(ctx context.Context, src, dst string) error
}

// FFmpeg shells out to the ffmpeg binary.
type FFmpeg struct {
	Path string
}

func (f FFmpeg) Convert(ctx context.Context, src, dst string) error {
	bin := f.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-y", "-i", src,
		"-ac", "1", "-ar", "16000", "-f", "wav",
		dst,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 300 {
			msg = msg[len(msg)-300:]
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, msg)
	}
	return nil
}

// Transcriber runs conversion followed by recognition. Its errors are always
// tagged with a failure kind and are never replaced by a fallback.
type Transcriber struct {
	conv Converter
	rec  Recognizer
	log  *logrus.Entry
}

func New(conv Converter, rec Recognizer, log *logger.Logger) *Transcriber {
	return &Transcriber{conv: conv, rec: rec, log: log.Component("transcription")}
}

func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	wav, err := os.CreateTemp("", "stt-*.wav")
	if err != nil {
		return "", types.Classify(fmt.Errorf("transcription: temp wav: %w", err))
	}
	wavPath := wav.Name()
	wav.Close()
	defer os.Remove(wavPath)

	if err := t.conv.Convert(ctx, audioPath, wavPath); err != nil {
		t.log.WithError(err).Warn("audio conversion failed")
		return "", types.Classify(fmt.Errorf("transcription: convert: %w", err))
	}

	text, err := t.rec.Recognize(ctx, wavPath)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		t.log.WithError(err).Warn("speech recognition failed")
		return "", types.Classify(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", types.ErrNoSpeech
	}
	return text, nil
}
