package calendarsession

import "sync"

// Sequencer orders overlapping asynchronous requests so only the newest result is applied.
// Each request takes a token from Next; Apply accepts a result only if no newer
// result has already been applied and its token is the latest issued.
type Sequencer struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
}

// NewSequencer returns a sequencer with no outstanding requests.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Next issues a new request token.
func (s *Sequencer) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Observe records a token issued elsewhere (e.g. by the browser) so the sequencer
// tracks the newest request it has seen.
func (s *Sequencer) Observe(token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token > s.issued {
		s.issued = token
	}
}

// Apply reports whether the result for token should be used.
// POST: true at most once per token, and only for the latest issued token
func (s *Sequencer) Apply(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.issued || token <= s.applied {
		return false
	}
	s.applied = token
	return true
}

// Stale reports whether a newer request than token has been issued.
func (s *Sequencer) Stale(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return token < s.issued
}
