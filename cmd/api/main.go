package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voice-negotiator-go/internal/api"
	"voice-negotiator-go/internal/config"
	"voice-negotiator-go/internal/costs"
	"voice-negotiator-go/internal/customers"
	"voice-negotiator-go/internal/health"
	"voice-negotiator-go/internal/llm"
	"voice-negotiator-go/internal/logger"
	"voice-negotiator-go/internal/negotiation"
	"voice-negotiator-go/internal/observe"
	"voice-negotiator-go/internal/pipeline"
	"voice-negotiator-go/internal/session"
	"voice-negotiator-go/internal/transcription"
	"voice-negotiator-go/internal/tts"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.WithField("addr", cfg.Addr()).Info("starting service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider("voice-negotiator-go")
	if err != nil {
		log.WithError(err).Fatal("failed to init metrics provider")
	}
	metrics, err := observe.Default()
	if err != nil {
		log.WithError(err).Fatal("failed to create metrics")
	}

	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	dir, err := customers.Open(loadCtx, cfg.Customers.Source, log)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("failed to load customers")
	}
	log.WithField("customers", dir.Len()).Info("customer directory loaded")

	if err := costs.Warmup(); err != nil {
		log.WithError(err).Warn("tokenizer unavailable, estimating tokens from length")
	}

	var completer llm.Completer
	if oa, err := llm.NewOpenAI(cfg.LLM.APIKey, cfg.LLM.Model,
		llm.WithBaseURL(cfg.LLM.BaseURL), llm.WithTimeout(cfg.LLM.Timeout)); err != nil {
		// replies degrade to the fallback text until a key is configured
		log.WithError(err).Warn("language model not configured")
		completer = unconfigured{}
	} else {
		completer = oa
	}

	synth := tts.NewElevenLabs(tts.Config{
		APIKey:   cfg.TTS.APIKey,
		VoiceID:  cfg.TTS.VoiceID,
		BaseURL:  cfg.TTS.BaseURL,
		AudioDir: filepath.Join(cfg.Server.StaticDir, "audio"),
		Timeout:  cfg.TTS.Timeout,
	}, log)

	whisper, err := transcription.NewWhisper(cfg.STT.WhisperURL, cfg.STT.Locale, cfg.STT.Timeout, log)
	if err != nil {
		log.WithError(err).Fatal("invalid speech recognizer settings")
	}
	go func() {
		if err := whisper.WaitReady(ctx, 30*time.Second); err != nil {
			log.WithError(err).Warn("speech recognizer unreachable; audio interactions will fail until it is up")
		}
	}()

	store := session.New()
	pipe := pipeline.New(pipeline.Deps{
		Responder:   negotiation.NewResponder(completer, log),
		Analyzer:    negotiation.NewAnalyzer(completer, log),
		Synthesizer: synth,
		Transcriber: transcription.New(transcription.FFmpeg{Path: cfg.STT.FFmpegPath}, whisper, log),
		Session:     store,
		Metrics:     metrics,
		Timeouts: pipeline.Timeouts{
			LLM: cfg.LLM.Timeout,
			TTS: cfg.TTS.Timeout,
			STT: cfg.STT.Timeout,
		},
	}, log)

	handler := &api.Handler{
		Customers:            dir,
		Pipeline:             pipe,
		Session:              store,
		Log:                  log,
		StrictCustomerLookup: cfg.Customers.StrictLookup,
		StaticDir:            cfg.Server.StaticDir,
		IndexPath:            cfg.Server.IndexPath,
	}
	mux := api.NewRouter(handler)
	health.New(
		health.Configured("llm_api_key", cfg.LLM.APIKey),
		health.Configured("tts_api_key", cfg.TTS.APIKey),
		health.Checker{Name: "speech_recognizer", Check: whisper.Ping},
	).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           log.Middleware(observe.Middleware(metrics)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		log.WithError(err).Warn("metrics shutdown failed")
	}
}

// unconfigured stands in for the model when no API key is set.
type unconfigured struct{}

func (unconfigured) Complete(context.Context, string) (string, error) {
	return "", errors.New("language model api key not configured")
}
