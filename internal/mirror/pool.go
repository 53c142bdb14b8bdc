// Package mirror holds the ordered set of interchangeable base addresses for
// one logical source and the cursor that rotates through them on failure.
package mirror

import (
	"errors"
	"strings"
	"sync"
)

// ErrEmptyPool is returned when a pool would have no endpoints.
var ErrEmptyPool = errors.New("mirror pool needs at least one endpoint")

// ResetFunc discards transport state tied to the endpoint being left.
type ResetFunc func(from, to string)

// Pool is a fixed, ordered, cyclic list of equivalent endpoints.
// It is safe for concurrent use.
type Pool struct {
	mu        sync.Mutex
	endpoints []string
	cursor    int
	resets    []ResetFunc
}

// New creates a pool over endpoints. Blank and duplicate entries are dropped
// and trailing slashes trimmed. When preferred matches an entry the cursor
// starts there, otherwise at index 0.
func New(endpoints []string, preferred string) (*Pool, error) {
	seen := make(map[string]struct{}, len(endpoints))
	clean := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		e = normalize(e)
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		clean = append(clean, e)
	}
	if len(clean) == 0 {
		return nil, ErrEmptyPool
	}

	p := &Pool{endpoints: clean}
	if preferred = normalize(preferred); preferred != "" {
		for i, e := range clean {
			if e == preferred {
				p.cursor = i
				break
			}
		}
	}
	return p, nil
}

func normalize(e string) string {
	return strings.TrimRight(strings.TrimSpace(e), "/")
}

// OnAdvance registers fn to run on every rotation, while the pool lock is
// held, so resets never interleave with another rotation.
func (p *Pool) OnAdvance(fn ResetFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets = append(p.resets, fn)
}

// Size returns the number of endpoints.
func (p *Pool) Size() int {
	return len(p.endpoints)
}

// Endpoints returns a copy of the endpoint list in rotation order.
func (p *Pool) Endpoints() []string {
	return append([]string(nil), p.endpoints...)
}

// Current returns the active endpoint.
func (p *Pool) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endpoints[p.cursor]
}

// Index returns the cursor position.
func (p *Pool) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Advance moves to the next endpoint, wrapping after the last, and returns it.
func (p *Pool) Advance() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.advanceLocked()
}

// AdvanceFrom rotates only if failed is still the active endpoint. Concurrent
// requests that failed on the same mirror therefore rotate once, not twice.
// It returns the endpoint that is active afterwards.
func (p *Pool) AdvanceFrom(failed string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.endpoints[p.cursor] != normalize(failed) {
		return p.endpoints[p.cursor]
	}
	return p.advanceLocked()
}

func (p *Pool) advanceLocked() string {
	from := p.endpoints[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.endpoints)
	to := p.endpoints[p.cursor]
	for _, fn := range p.resets {
		fn(from, to)
	}
	return to
}
