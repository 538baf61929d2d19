// Package costs estimates the token usage and price of a model reply.
package costs

import (
	"math"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"voice-negotiator-go/internal/types"
)

const (
	// Encoding is the tokenizer used by the gpt-3.5/gpt-4 family.
	Encoding = "cl100k_base"
	// PricePer1K is the USD price per thousand tokens.
	PricePer1K = 0.002
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func encoder() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		enc, encErr = tiktoken.GetEncoding(Encoding)
	})
	return enc, encErr
}

// Warmup loads the tokenizer. A non-nil error means CountTokens will use
// the length approximation for the life of the process.
func Warmup() error {
	_, err := encoder()
	return err
}

// CountTokens returns the cl100k_base token count of text. When the
// tokenizer cannot be loaded it approximates one token per four bytes.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if e, err := encoder(); err == nil {
		return len(e.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

// Estimate reports words, tokens and estimated cost for text.
// Cost is rounded to six decimals.
func Estimate(text string) types.CostMetrics {
	tokens := CountTokens(text)
	cost := float64(tokens) * PricePer1K / 1000
	return types.CostMetrics{
		Words:         len(strings.Fields(text)),
		Tokens:        tokens,
		EstimatedCost: math.Round(cost*1e6) / 1e6,
	}
}
