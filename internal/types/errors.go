package types

import (
	"context"
	"errors"
	"fmt"
)

// Failure kinds surfaced by the external-service adapters. Handlers map them
// to status codes; the pipeline uses them to decide between degrading and aborting.
var (
	ErrTimeout    = errors.New("external call timed out")
	ErrNoSpeech   = errors.New("no speech recognized")
	ErrUpstream   = errors.New("external service failure")
	ErrEmptyInput = errors.New("empty user input")
)

// Classify tags err with a failure kind. Deadline errors become ErrTimeout,
// anything not already tagged becomes ErrUpstream. The original error stays
// reachable through errors.Is/As.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrNoSpeech), errors.Is(err, ErrUpstream), errors.Is(err, ErrEmptyInput):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
}

// Kind names the failure kind of err for logs and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrNoSpeech):
		return "no_speech"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	default:
		return "upstream"
	}
}
