// Package pipeline runs one customer interaction end to end: reply, record,
// speak, assess and price.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"voice-negotiator-go/internal/costs"
	"voice-negotiator-go/internal/logger"
	"voice-negotiator-go/internal/negotiation"
	"voice-negotiator-go/internal/observe"
	"voice-negotiator-go/internal/session"
	"voice-negotiator-go/internal/speechtext"
	"voice-negotiator-go/internal/types"
)

type Responder interface {
	Respond(ctx context.Context, userText string, customer *types.CustomerProfile) (string, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, latest string, transcript []string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Timeouts bound each external stage independently. Zero means no bound
// beyond the caller's context.
type Timeouts struct {
	LLM time.Duration
	TTS time.Duration
	STT time.Duration
}

type Deps struct {
	Responder   Responder
	Analyzer    Analyzer
	Synthesizer Synthesizer
	Transcriber Transcriber
	Session     *session.Store
	Metrics     *observe.Metrics
	Timeouts    Timeouts
}

type Pipeline struct {
	Deps
	log *logrus.Entry
}

func New(d Deps, log *logger.Logger) *Pipeline {
	return &Pipeline{Deps: d, log: log.Component("pipeline")}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Interact handles typed input. Empty input is rejected before anything is
// recorded. Model, synthesis and analysis failures degrade the result rather
// than failing it.
func (p *Pipeline) Interact(ctx context.Context, input string, customer *types.CustomerProfile) (types.InteractionResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.InteractionResult{}, types.ErrEmptyInput
	}
	return p.run(ctx, input, customer, "text"), nil
}

// InteractAudio transcribes the recording at audioPath and then behaves like
// Interact. Transcription failures abort the interaction with nothing recorded.
func (p *Pipeline) InteractAudio(ctx context.Context, audioPath string, customer *types.CustomerProfile) (types.InteractionResult, error) {
	sttCtx, cancel := withTimeout(ctx, p.Timeouts.STT)
	start := time.Now()
	text, err := p.Transcriber.Transcribe(sttCtx, audioPath)
	cancel()
	if err != nil {
		err = types.Classify(err)
		p.Metrics.ObserveStage(ctx, observe.StageSTT, start, err, types.Kind(err))
		return types.InteractionResult{}, err
	}
	p.Metrics.ObserveStage(ctx, observe.StageSTT, start, nil, "")

	res := p.run(ctx, text, customer, "audio")
	res.UserText = text
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, input string, customer *types.CustomerProfile, mode string) types.InteractionResult {
	begin := time.Now()
	log := p.log.WithField("mode", mode)
	if customer != nil {
		log = log.WithField("cliente_id", customer.ID)
	}

	llmCtx, cancel := withTimeout(ctx, p.Timeouts.LLM)
	start := time.Now()
	reply, err := p.Responder.Respond(llmCtx, input, customer)
	cancel()
	p.Metrics.ObserveStage(ctx, observe.StageLLM, start, err, types.Kind(err))
	if err != nil {
		log.WithField("kind", types.Kind(err)).Warn("reply degraded to fallback")
		if reply == "" {
			reply = negotiation.FallbackReply
		}
	}

	p.Session.AppendExchange(input, reply)
	transcript := p.Session.Lines()
	spoken := speechtext.Normalize(reply)

	var (
		audioPath *string
		analysis  string
		g         errgroup.Group
	)
	g.Go(func() error {
		ttsCtx, cancel := withTimeout(ctx, p.Timeouts.TTS)
		defer cancel()
		start := time.Now()
		path, err := p.Synthesizer.Synthesize(ttsCtx, spoken)
		p.Metrics.ObserveStage(ctx, observe.StageTTS, start, err, types.Kind(err))
		if err != nil {
			log.WithError(err).Warn("speech synthesis failed, returning text only")
			return nil
		}
		audioPath = &path
		return nil
	})
	g.Go(func() error {
		aCtx, cancel := withTimeout(ctx, p.Timeouts.LLM)
		defer cancel()
		start := time.Now()
		var err error
		analysis, err = p.Analyzer.Analyze(aCtx, reply, transcript)
		p.Metrics.ObserveStage(ctx, observe.StageAnalysis, start, err, types.Kind(err))
		if err != nil && analysis == "" {
			analysis = negotiation.FallbackAnalysis
		}
		return nil
	})
	_ = g.Wait()

	cost := costs.Estimate(reply)
	p.Metrics.ObserveStage(ctx, observe.StageInteraction, begin, nil, "")
	p.Metrics.CountInteraction(ctx, mode, cost.Tokens)
	log.WithFields(logrus.Fields{
		"tokens":      cost.Tokens,
		"has_audio":   audioPath != nil,
		"duration_ms": time.Since(begin).Milliseconds(),
	}).Info("interaction completed")

	return types.InteractionResult{
		Text:              reply,
		AudioPath:         audioPath,
		SentimentAnalysis: analysis,
		Costs:             cost,
	}
}
