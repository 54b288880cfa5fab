// Package hub groups live viewer connections by canvas and fans out frames.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Recipient is an opaque handle to a connected viewer. Equality is by
// identity. Close must be idempotent; Send must fail, not hang, once the
// underlying transport is gone.
type Recipient interface {
	Send(payload []byte) error
	Close() error
}

// Registry holds the member set of each configured canvas. The canvas set is
// fixed at construction; membership changes on join, leave, delivery failure,
// and shutdown.
type Registry struct {
	mu      sync.RWMutex
	slugs   []string
	members map[string]map[Recipient]struct{}
	log     zerolog.Logger
}

// NewRegistry creates a Registry with one empty member set per slug.
func NewRegistry(slugs []string, log zerolog.Logger) *Registry {
	members := make(map[string]map[Recipient]struct{}, len(slugs))
	for _, s := range slugs {
		members[s] = make(map[Recipient]struct{})
	}
	return &Registry{slugs: append([]string(nil), slugs...), members: members, log: log}
}

// Join adds r to the canvas. Returns false when the slug is not configured.
// Joining twice is idempotent.
func (g *Registry) Join(slug string, r Recipient) bool {
	g.mu.Lock()
	set, ok := g.members[slug]
	if !ok {
		g.mu.Unlock()
		g.log.Error().Str("canvas", slug).Msg("join rejected: unknown canvas")
		return false
	}
	set[r] = struct{}{}
	n := len(set)
	g.mu.Unlock()
	viewersGauge.WithLabelValues(slug).Set(float64(n))
	g.log.Info().Str("canvas", slug).Int("viewers", n).Msg("viewer joined")
	return true
}

// Leave removes r from the canvas. Unknown slug or absent member is a no-op.
func (g *Registry) Leave(slug string, r Recipient) {
	g.mu.Lock()
	set, ok := g.members[slug]
	if !ok {
		g.mu.Unlock()
		return
	}
	if _, present := set[r]; !present {
		g.mu.Unlock()
		return
	}
	delete(set, r)
	n := len(set)
	g.mu.Unlock()
	viewersGauge.WithLabelValues(slug).Set(float64(n))
	g.log.Info().Str("canvas", slug).Int("viewers", n).Msg("viewer left")
}

// Members returns a snapshot of the canvas member set. Unknown slugs yield
// an empty slice, not an error.
func (g *Registry) Members(slug string) []Recipient {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := g.members[slug]
	out := make([]Recipient, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	return out
}

// Counts returns viewer counts per canvas.
func (g *Registry) Counts() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]int, len(g.members))
	for slug, set := range g.members {
		out[slug] = len(set)
	}
	return out
}

// Has reports whether slug is a configured canvas.
func (g *Registry) Has(slug string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.members[slug]
	return ok
}

// Slugs returns the configured canvas slugs in construction order.
func (g *Registry) Slugs() []string {
	return append([]string(nil), g.slugs...)
}

// LogLoop periodically logs viewer counts per canvas until ctx is canceled.
// Run it in its own goroutine.
func (g *Registry) LogLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for slug, n := range g.Counts() {
				g.log.Info().Str("canvas", slug).Int("viewers", n).Msg("active connections")
			}
		}
	}
}

// Close releases every held recipient handle and empties all canvases.
// Used at shutdown; recipient Close is idempotent so racing disconnects are
// harmless.
func (g *Registry) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for slug, set := range g.members {
		for r := range set {
			if err := r.Close(); err != nil {
				g.log.Error().Str("canvas", slug).Err(err).Msg("closing viewer connection")
			}
		}
		g.members[slug] = make(map[Recipient]struct{})
		viewersGauge.WithLabelValues(slug).Set(0)
	}
}
