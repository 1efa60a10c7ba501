package service

import (
	"errors"
	"sync"
)

// ErrStreamInProgress is returned when a second stream is requested for a
// conversation that already has one in flight.
var ErrStreamInProgress = errors.New("a stream is already in progress for this conversation")

// streamGuards holds the set of conversations with an active stream.
// Concurrent streams against one conversation would interleave their
// persistence writes, so the second request is rejected instead.
type streamGuards struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newStreamGuards() *streamGuards {
	return &streamGuards{active: make(map[string]struct{})}
}

func (g *streamGuards) acquire(conversationID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[conversationID]; busy {
		return false
	}
	g.active[conversationID] = struct{}{}
	return true
}

func (g *streamGuards) release(conversationID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, conversationID)
}

var guards = newStreamGuards()
