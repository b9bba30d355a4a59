package testutil

import (
	"fmt"
	"sync"
)

// TokenSequence hands out publish tokens "<prefix>-1", "<prefix>-2", ...
//
// It never runs dry, so long scenarios do not have to list their tokens up
// front the way engine.FixedGenerator does.
type TokenSequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewTokenSequence returns a sequence with the given prefix, "publish" when
// empty.
func NewTokenSequence(prefix string) *TokenSequence {
	if prefix == "" {
		prefix = "publish"
	}
	return &TokenSequence{prefix: prefix}
}

// Generate returns the next token.
func (s *TokenSequence) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}

// Reset restarts the sequence at 1.
func (s *TokenSequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}
