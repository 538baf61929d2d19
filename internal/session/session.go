// Package session keeps the process-wide conversation transcript.
package session

import (
	"strings"
	"sync"

	"voice-negotiator-go/internal/types"
)

// Store is an append-only list of turns guarded by a mutex. The order of
// turns is the order in which writers acquired the lock.
type Store struct {
	mu    sync.Mutex
	turns []types.Turn
}

func New() *Store { return &Store{} }

func (s *Store) Append(t types.Turn) {
	s.mu.Lock()
	s.turns = append(s.turns, t)
	s.mu.Unlock()
}

// AppendExchange records a user turn and the agent's reply back to back so
// concurrent interactions never interleave inside a pair.
func (s *Store) AppendExchange(userText, agentText string) {
	s.mu.Lock()
	s.turns = append(s.turns,
		types.Turn{Role: types.RoleUser, Text: userText},
		types.Turn{Role: types.RoleAgent, Text: agentText},
	)
	s.mu.Unlock()
}

// Snapshot returns a copy of the transcript.
func (s *Store) Snapshot() []types.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Turn(nil), s.turns...)
}

// Lines returns each turn rendered as "Cliente: ..." or "Val: ...".
func (s *Store) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.turns))
	for i, t := range s.turns {
		out[i] = t.Label()
	}
	return out
}

func (s *Store) Transcript() string {
	return strings.Join(s.Lines(), "\n")
}

func (s *Store) Reset() {
	s.mu.Lock()
	s.turns = nil
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}
