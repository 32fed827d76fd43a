// Package testutil holds deterministic stand-ins and fixtures shared by
// package tests.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates "session-1", "session-2", ... in order.
//
// It satisfies registry.SessionIDGenerator, so tests can assert exact
// session ids across logins.
//
// Thread-safety: SequentialIDs is safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequentialIDs creates a generator whose ids start with prefix.
// An empty prefix uses "session".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "session"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Issued returns how many ids were generated so far.
func (g *SequentialIDs) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}
