package types

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestTurnLabel(t *testing.T) {
	cases := []struct {
		turn Turn
		want string
	}{
		{Turn{Role: RoleUser, Text: "hola"}, "Cliente: hola"},
		{Turn{Role: RoleAgent, Text: "buenos días"}, "Val: buenos días"},
	}
	for _, tc := range cases {
		if got := tc.turn.Label(); got != tc.want {
			t.Errorf("Label() = %q, want %q", got, tc.want)
		}
	}
}

func TestClassify(t *testing.T) {
	if Classify(nil) != nil {
		t.Fatal("Classify(nil) should be nil")
	}

	deadline := fmt.Errorf("llm call: %w", context.DeadlineExceeded)
	got := Classify(deadline)
	if !errors.Is(got, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", got)
	}
	if !errors.Is(got, context.DeadlineExceeded) {
		t.Errorf("original error lost: %v", got)
	}

	plain := errors.New("connection refused")
	if got := Classify(plain); !errors.Is(got, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", got)
	}

	tagged := fmt.Errorf("whisper: %w", ErrNoSpeech)
	if got := Classify(tagged); got != tagged {
		t.Errorf("already tagged error should pass through, got %v", got)
	}
}

func TestCustomerProfileCloneDoesNotAlias(t *testing.T) {
	orig := CustomerProfile{ID: 1, PaymentHistory: []Payment{{Date: "2024-01-15", Amount: 200000}}}
	cp := orig.Clone()
	cp.PaymentHistory[0].Amount = 1

	if orig.PaymentHistory[0].Amount != 200000 {
		t.Fatalf("clone aliased payment history: %v", orig.PaymentHistory)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{Classify(context.DeadlineExceeded), "timeout"},
		{ErrNoSpeech, "no_speech"},
		{ErrEmptyInput, "empty_input"},
		{errors.New("boom"), "upstream"},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
