// Package negotiation produces the agent's replies and the running
// sentiment/progress assessment of a debt-collection conversation.
package negotiation

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"voice-negotiator-go/internal/llm"
	"voice-negotiator-go/internal/logger"
	"voice-negotiator-go/internal/types"
)

// Fixed texts returned to the customer when the model cannot be reached.
const (
	FallbackReply    = "Lo siento, no puedo procesar tu solicitud en este momento."
	FallbackAnalysis = "Análisis de sentimiento no disponible."
)

var errEmptyReply = errors.New("negotiation: model returned empty text")

type Responder struct {
	llm llm.Completer
	log *logrus.Entry
}

func NewResponder(c llm.Completer, log *logger.Logger) *Responder {
	return &Responder{llm: c, log: log.Component("negotiation.responder")}
}

// Respond asks the model for the agent's next line. On failure it returns
// FallbackReply together with the classified error; the reply is always usable.
func (r *Responder) Respond(ctx context.Context, userText string, customer *types.CustomerProfile) (string, error) {
	reply, err := r.llm.Complete(ctx, ResponsePrompt(customer, userText))
	if err != nil {
		err = types.Classify(err)
		r.log.WithError(err).Warn("model reply failed, using fallback")
		return FallbackReply, err
	}
	if reply == "" {
		r.log.Warn("model returned empty reply, using fallback")
		return FallbackReply, types.Classify(errEmptyReply)
	}
	return reply, nil
}

type Analyzer struct {
	llm llm.Completer
	log *logrus.Entry
}

func NewAnalyzer(c llm.Completer, log *logger.Logger) *Analyzer {
	return &Analyzer{llm: c, log: log.Component("negotiation.analyzer")}
}

// Analyze assesses latest in the context of transcript. On failure it returns
// FallbackAnalysis together with the classified error.
func (a *Analyzer) Analyze(ctx context.Context, latest string, transcript []string) (string, error) {
	out, err := a.llm.Complete(ctx, AnalysisPrompt(latest, transcript))
	if err != nil {
		err = types.Classify(err)
		a.log.WithError(err).Warn("sentiment analysis failed, using fallback")
		return FallbackAnalysis, err
	}
	if out == "" {
		return FallbackAnalysis, types.Classify(errEmptyReply)
	}
	return out, nil
}
