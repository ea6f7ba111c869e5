// Package uid mints the prefixed ids used across compiled pipelines.
package uid

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Id prefixes.
const (
	PrefixPipeline = "p"
	PrefixNode     = "n"
	PrefixFlow     = "f"
	PrefixToken    = "t"
)

// Generator mints collision-resistant ids starting with prefix.
type Generator interface {
	New(prefix string) string
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(prefix string) string

// New calls f(prefix).
func (f GeneratorFunc) New(prefix string) string { return f(prefix) }

// UUID is the default Generator: prefix followed by 32 hex digits of a random UUID.
type UUID struct{}

// New returns prefix + uuid4 hex.
func (UUID) New(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Default is the generator used when none is injected.
var Default Generator = UUID{}

// Unique mints an id with the default generator.
func Unique(prefix string) string {
	return Default.New(prefix)
}

// Sequence is a deterministic Generator for tests: it yields prefix + a
// per-prefix counter unless ids were queued with Push.
type Sequence struct {
	mu       sync.Mutex
	counters map[string]int
	queue    []string
}

// NewSequence returns a Sequence with ids optionally queued.
func NewSequence(queued ...string) *Sequence {
	return &Sequence{counters: map[string]int{}, queue: queued}
}

// Push queues an id to be returned by the next call to New.
func (s *Sequence) Push(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, id)
}

// New returns the next queued id or prefix + counter.
func (s *Sequence) New(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) > 0 {
		id := s.queue[0]
		s.queue = s.queue[1:]
		return id
	}
	s.counters[prefix]++
	return fmt.Sprintf("%s%d", prefix, s.counters[prefix])
}
