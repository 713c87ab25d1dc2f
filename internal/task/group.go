package task

import "sync"

// closer is satisfied by *Runner of any result type.
type closer interface {
	Close()
}

// Group ties a set of runners to one owner so they can be torn down
// together when the owner goes away. After Close, newly added runners are
// closed on arrival, so late registrations cannot leak work.
type Group struct {
	mu      sync.Mutex
	members []closer
	closed  bool
}

// NewGroup creates an empty group.
func NewGroup() *Group {
	return &Group{}
}

// Add registers a runner for teardown.
func (g *Group) Add(c closer) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		c.Close()
		return
	}
	g.members = append(g.members, c)
	g.mu.Unlock()
}

// Close tears down every registered runner, cancelling any in-flight work.
// Idempotent.
func (g *Group) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	members := g.members
	g.members = nil
	g.mu.Unlock()

	for _, m := range members {
		m.Close()
	}
}
