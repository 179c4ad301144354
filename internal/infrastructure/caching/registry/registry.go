// Package registry holds the explicit registration table mapping operation
// patterns to their cache configuration. Business code registers its
// cacheable and cache-evicting operations here at startup; nothing is
// discovered through reflection at call time.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/types"
)

// KeyFunc produces a cache key directly from call arguments, bypassing the
// default key derivation entirely.
type KeyFunc func(args []any) string

// Condition decides whether a call participates in caching at all.
type Condition func(args []any) bool

// EvictRule describes one invalidation action attached to an operation.
// When is only consulted for after rules, which receive the operation's
// result; a nil When always fires.
type EvictRule struct {
	Patterns     []string
	Tags         []string
	AllForTenant bool
	Timing       types.EvictTiming
	When         func(result any) bool
}

// Operation is the cache configuration for one registered operation pattern.
type Operation struct {
	Pattern        string
	Tier           types.Tier
	TTL            time.Duration // zero means use the tier default
	Tags           []string
	Version        int
	KeyFunc        KeyFunc
	Condition      Condition
	CacheNilValues bool
	EvictRules     []EvictRule
}

// ResolvedTTL returns the operation TTL, falling back to the tier default.
func (op *Operation) ResolvedTTL() time.Duration {
	if op.TTL > 0 {
		return op.TTL
	}
	return op.Tier.DefaultTTL()
}

// Registry is the operation registration table, populated at startup.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]*Operation
}

// New creates an empty operation registry.
func New() *Registry {
	return &Registry{ops: make(map[string]*Operation)}
}

// Register adds an operation to the table. Duplicate patterns and empty
// patterns are rejected eagerly so misconfiguration surfaces at startup.
func (r *Registry) Register(op *Operation) error {
	if op == nil || op.Pattern == "" {
		return fmt.Errorf("operation pattern is required")
	}
	if op.Tier == "" {
		op.Tier = types.TierWarm
	}
	for _, rule := range op.EvictRules {
		if rule.Timing != types.EvictBefore && rule.Timing != types.EvictAfter {
			return fmt.Errorf("operation %s: invalid evict timing %q", op.Pattern, rule.Timing)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[op.Pattern]; exists {
		return fmt.Errorf("operation %s already registered", op.Pattern)
	}
	r.ops[op.Pattern] = op
	return nil
}

// MustRegister registers an operation and panics on configuration errors.
// Intended for static startup tables where a bad entry is a programming bug.
func (r *Registry) MustRegister(op *Operation) {
	if err := r.Register(op); err != nil {
		panic(err)
	}
}

// Lookup returns the registered operation for a pattern.
func (r *Registry) Lookup(pattern string) (*Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, exists := r.ops[pattern]
	return op, exists
}

// Patterns returns all registered operation patterns.
func (r *Registry) Patterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	patterns := make([]string, 0, len(r.ops))
	for pattern := range r.ops {
		patterns = append(patterns, pattern)
	}
	return patterns
}
