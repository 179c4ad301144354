// Package orchestrator implements the cache-aside wrapper business code
// calls around expensive reads. It consults the store through derived keys,
// falls back to the producer on miss or store failure, and runs the
// operation's eviction rules around the wrapped call.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/invalidation"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/keys"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/registry"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/types"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
	"github.com/mrzlfz/stokcerdas-go/pkg/config"
)

var errStoreTimeout = errors.New("cache store call timed out")

// Store is the slice of the cache store the orchestrator touches.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any, tier types.Tier, ttl time.Duration, tags []string, tenantID, pattern string)
}

// Recorder receives cache operation events. Implementations must not block.
type Recorder interface {
	RecordCacheOperation(operation, pattern string, responseTimeMs float64, tenantID string)
}

// Producer computes the value on a cache miss.
type Producer func(ctx context.Context) (any, error)

// Orchestrator is the cache-aside entry point.
type Orchestrator struct {
	registry     *registry.Registry
	deriver      *keys.Deriver
	store        Store
	invalidator  *invalidation.Engine
	recorder     Recorder
	logger       *logging.ChanneledLogger
	storeTimeout time.Duration
}

// New creates an orchestrator. recorder may be nil.
func New(reg *registry.Registry, deriver *keys.Deriver, store Store, invalidator *invalidation.Engine, recorder Recorder, logger *logging.ChanneledLogger) *Orchestrator {
	return &Orchestrator{
		registry:     reg,
		deriver:      deriver,
		store:        store,
		invalidator:  invalidator,
		recorder:     recorder,
		logger:       logger,
		storeTimeout: config.StoreTimeout,
	}
}

// GetOrCompute returns the cached value for the operation, or invokes the
// producer, stores its result, and returns it. Producer errors propagate
// unchanged; store failures degrade to calling the producer directly.
func (o *Orchestrator) GetOrCompute(ctx context.Context, pattern string, args []any, producer Producer) (any, error) {
	op, registered := o.registry.Lookup(pattern)
	if !registered {
		if o.logger != nil {
			o.logger.Cache().Warn("Unregistered cache operation, bypassing cache", "pattern", pattern)
		}
		return producer(ctx)
	}

	tenantID := o.deriver.ResolveTenant(ctx, args)
	o.runEvictRules(op, tenantID, types.EvictBefore, nil)

	// a false condition skips caching but not the operation's evictions,
	// so write operations register with an always-false condition
	if op.Condition != nil && !op.Condition(args) {
		result, err := producer(ctx)
		if err != nil {
			return nil, err
		}
		o.runEvictRules(op, tenantID, types.EvictAfter, result)
		return result, nil
	}

	key := o.deriver.Derive(ctx, op, args)

	start := time.Now()
	value, hit, err := o.storeGet(key)
	elapsed := msSince(start)
	if err != nil && o.logger != nil {
		o.logger.Cache().Error("Cache get failed, falling through to producer",
			"pattern", pattern, "key", key, "error", err)
	}
	if hit && (value != nil || op.CacheNilValues) {
		o.record("hit", pattern, elapsed, tenantID)
		o.runEvictRules(op, tenantID, types.EvictAfter, value)
		return value, nil
	}
	o.record("miss", pattern, elapsed, tenantID)

	result, err := producer(ctx)
	if err != nil {
		return nil, err
	}

	if result != nil || op.CacheNilValues {
		start = time.Now()
		if err := o.storeSet(key, result, op, tenantID); err != nil {
			if o.logger != nil {
				o.logger.Cache().Error("Cache set failed, returning uncached result",
					"pattern", pattern, "key", key, "error", err)
			}
		} else {
			o.record("set", pattern, msSince(start), tenantID)
		}
	}

	o.runEvictRules(op, tenantID, types.EvictAfter, result)
	return result, nil
}

// Invalidate exposes the invalidation engine to callers that hold only the
// orchestrator.
func (o *Orchestrator) Invalidate(patterns, tags []string, tenantID string) int {
	if o.invalidator == nil {
		return 0
	}
	removed := 0
	if len(patterns) > 0 {
		removed += o.invalidator.InvalidateByPatterns(patterns, tenantID)
	}
	if len(tags) > 0 {
		removed += o.invalidator.InvalidateByTags(tags, tenantID)
	}
	return removed
}

func (o *Orchestrator) runEvictRules(op *registry.Operation, tenantID string, timing types.EvictTiming, result any) {
	if o.invalidator == nil {
		return
	}
	for _, rule := range op.EvictRules {
		if rule.Timing != timing {
			continue
		}
		if timing == types.EvictAfter && rule.When != nil && !rule.When(result) {
			continue
		}
		removed := 0
		if rule.AllForTenant && tenantID != "" {
			removed += o.invalidator.InvalidateAllForTenant(tenantID)
		}
		if len(rule.Patterns) > 0 {
			removed += o.invalidator.InvalidateByPatterns(rule.Patterns, tenantID)
		}
		if len(rule.Tags) > 0 {
			removed += o.invalidator.InvalidateByTags(rule.Tags, tenantID)
		}
		if removed > 0 {
			o.record("evict", op.Pattern, 0, tenantID)
		}
	}
}

// storeGet bounds the store call with the configured timeout so a hung
// backend degrades to a miss instead of stalling the caller.
func (o *Orchestrator) storeGet(key string) (value any, hit bool, err error) {
	type result struct {
		value any
		hit   bool
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("cache store panic: %v", r)}
			}
		}()
		v, h := o.store.Get(key)
		done <- result{value: v, hit: h}
	}()

	select {
	case r := <-done:
		return r.value, r.hit, r.err
	case <-time.After(o.storeTimeout):
		return nil, false, errStoreTimeout
	}
}

func (o *Orchestrator) storeSet(key string, value any, op *registry.Operation, tenantID string) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("cache store panic: %v", r)
			}
		}()
		o.store.Set(key, value, op.Tier, op.ResolvedTTL(), op.Tags, tenantID, op.Pattern)
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(o.storeTimeout):
		return errStoreTimeout
	}
}

func (o *Orchestrator) record(operation, pattern string, responseTimeMs float64, tenantID string) {
	if o.recorder == nil {
		return
	}
	o.recorder.RecordCacheOperation(operation, pattern, responseTimeMs, tenantID)
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
