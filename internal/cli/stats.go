package cli

import (
	"sync"

	"github.com/matzehuels/wheelfix/pkg/observability"
)

// relocationStats counts relocation and cache events for the summary line
// printed after each command.
type relocationStats struct {
	mu sync.Mutex
	s  statsSnapshot
}

// statsSnapshot is a copy of the counters.
type statsSnapshot struct {
	Copies      int
	Rewrites    int
	RPaths      int
	Passes      int
	CacheHits   int
	CacheMisses int
}

var (
	_ observability.RelocationHooks = (*relocationStats)(nil)
	_ observability.CacheHooks      = (*relocationStats)(nil)
)

func (r *relocationStats) update(fn func(*statsSnapshot)) {
	r.mu.Lock()
	fn(&r.s)
	r.mu.Unlock()
}

// snapshot returns the counters and resets them.
func (r *relocationStats) snapshot() statsSnapshot {
	if r == nil {
		return statsSnapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.s
	r.s = statsSnapshot{}
	return s
}

func (r *relocationStats) OnPlan(string, int, int) {}

func (r *relocationStats) OnCopy(string, string) {
	r.update(func(s *statsSnapshot) { s.Copies++ })
}

func (r *relocationStats) OnRPath(string, string) {
	r.update(func(s *statsSnapshot) { s.RPaths++ })
}

func (r *relocationStats) OnRewrite(string, string, string) {
	r.update(func(s *statsSnapshot) { s.Rewrites++ })
}

func (r *relocationStats) OnClosurePass(string, int, int) {
	r.update(func(s *statsSnapshot) { s.Passes++ })
}

func (r *relocationStats) OnCacheHit(string) {
	r.update(func(s *statsSnapshot) { s.CacheHits++ })
}

func (r *relocationStats) OnCacheMiss(string) {
	r.update(func(s *statsSnapshot) { s.CacheMisses++ })
}

func (r *relocationStats) OnCacheSet(string, int) {}
