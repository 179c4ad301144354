package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/invalidation"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/keys"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/registry"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/stores"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/types"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/tenant"
)

type recordedOp struct {
	operation string
	pattern   string
	tenantID  string
}

type fakeRecorder struct {
	mu  sync.Mutex
	ops []recordedOp
}

func (r *fakeRecorder) RecordCacheOperation(operation, pattern string, responseTimeMs float64, tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, recordedOp{operation: operation, pattern: pattern, tenantID: tenantID})
}

func (r *fakeRecorder) operations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.ops))
	for i, op := range r.ops {
		names[i] = op.operation
	}
	return names
}

func newTestOrchestrator(reg *registry.Registry, store Store) (*Orchestrator, *fakeRecorder) {
	recorder := &fakeRecorder{}
	var engine *invalidation.Engine
	if realStore, ok := store.(*stores.Store); ok {
		engine = invalidation.NewEngine(realStore, nil)
	}
	o := New(reg, keys.NewDeriver(nil), store, engine, recorder, nil)
	o.storeTimeout = 200 * time.Millisecond
	return o, recorder
}

func countingProducer(value any) (Producer, *int) {
	calls := 0
	return func(ctx context.Context) (any, error) {
		calls++
		return value, nil
	}, &calls
}

func TestGetOrComputeCachesSecondCall(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(&registry.Operation{Pattern: "products:list", Tier: types.TierHot})
	o, recorder := newTestOrchestrator(reg, stores.NewStore(0, nil))

	producer, calls := countingProducer([]string{"sku-1"})
	ctx := tenant.WithTenant(context.Background(), "T1")
	args := []any{map[string]any{"limit": 20, "offset": 0}}

	first, err := o.GetOrCompute(ctx, "products:list", args, producer)
	require.NoError(t, err)
	second, err := o.GetOrCompute(ctx, "products:list", args, producer)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, []string{"miss", "set", "hit"}, recorder.operations())
}

func TestGetOrComputeTenantsComputeIndependently(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(&registry.Operation{Pattern: "products:list", Tier: types.TierHot})
	o, _ := newTestOrchestrator(reg, stores.NewStore(0, nil))

	producer, calls := countingProducer("result")
	args := []any{map[string]any{"limit": 20, "offset": 0}}

	_, err := o.GetOrCompute(tenant.WithTenant(context.Background(), "T1"), "products:list", args, producer)
	require.NoError(t, err)
	_, err = o.GetOrCompute(tenant.WithTenant(context.Background(), "T2"), "products:list", args, producer)
	require.NoError(t, err)

	assert.Equal(t, 2, *calls)
}

func TestConditionSkipsCache(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(&registry.Operation{
		Pattern:   "products:list",
		Tier:      types.TierHot,
		Condition: func(args []any) bool { return false },
	})
	store := stores.NewStore(0, nil)
	o, recorder := newTestOrchestrator(reg, store)

	producer, calls := countingProducer("fresh")
	_, _ = o.GetOrCompute(context.Background(), "products:list", nil, producer)
	_, _ = o.GetOrCompute(context.Background(), "products:list", nil, producer)

	assert.Equal(t, 2, *calls)
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, recorder.operations())
}

func TestUnregisteredPatternBypassesCache(t *testing.T) {
	o, _ := newTestOrchestrator(registry.New(), stores.NewStore(0, nil))

	producer, calls := countingProducer(42)
	value, err := o.GetOrCompute(context.Background(), "unknown:op", nil, producer)

	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.Equal(t, 1, *calls)
}

func TestProducerErrorPropagatesUncached(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(&registry.Operation{Pattern: "orders:list", Tier: types.TierWarm})
	store := stores.NewStore(0, nil)
	o, _ := newTestOrchestrator(reg, store)

	boom := errors.New("db unavailable")
	_, err := o.GetOrCompute(context.Background(), "orders:list", nil, func(ctx context.Context) (any, error) {
		return nil, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())
}

func TestNilResultNotCachedByDefault(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(&registry.Operation{Pattern: "products:detail", Tier: types.TierWarm})
	store := stores.NewStore(0, nil)
	o, _ := newTestOrchestrator(reg, store)

	producer, calls := countingProducer(nil)
	ctx := tenant.WithTenant(context.Background(), "T1")

	_, err := o.GetOrCompute(ctx, "products:detail", []any{"sku-404"}, producer)
	require.NoError(t, err)
	_, err = o.GetOrCompute(ctx, "products:detail", []any{"sku-404"}, producer)
	require.NoError(t, err)

	assert.Equal(t, 2, *calls)
	assert.Equal(t, 0, store.Len())
}

func TestNilResultCachedWhenConfigured(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(&registry.Operation{Pattern: "products:detail", Tier: types.TierWarm, CacheNilValues: true})
	o, _ := newTestOrchestrator(reg, stores.NewStore(0, nil))

	producer, calls := countingProducer(nil)
	ctx := tenant.WithTenant(context.Background(), "T1")

	_, _ = o.GetOrCompute(ctx, "products:detail", []any{"sku-404"}, producer)
	_, _ = o.GetOrCompute(ctx, "products:detail", []any{"sku-404"}, producer)

	assert.Equal(t, 1, *calls)
}

type brokenStore struct{}

func (brokenStore) Get(string) (any, bool) { panic("store down") }
func (brokenStore) Set(string, any, types.Tier, time.Duration, []string, string, string) {
	panic("store down")
}

func TestStoreFailureFallsBackToProducer(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(&registry.Operation{Pattern: "products:list", Tier: types.TierHot})
	o, _ := newTestOrchestrator(reg, brokenStore{})

	producer, calls := countingProducer("still works")
	for i := 0; i < 3; i++ {
		value, err := o.GetOrCompute(context.Background(), "products:list", nil, producer)
		require.NoError(t, err)
		assert.Equal(t, "still works", value)
	}
	assert.Equal(t, 3, *calls)
}

type hungStore struct{}

func (hungStore) Get(string) (any, bool) {
	time.Sleep(5 * time.Second)
	return nil, false
}
func (hungStore) Set(string, any, types.Tier, time.Duration, []string, string, string) {
	time.Sleep(5 * time.Second)
}

func TestHungStoreDegradesToMiss(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(&registry.Operation{Pattern: "products:list", Tier: types.TierHot})
	o, _ := newTestOrchestrator(reg, hungStore{})
	o.storeTimeout = 20 * time.Millisecond

	producer, _ := countingProducer("value")
	start := time.Now()
	value, err := o.GetOrCompute(context.Background(), "products:list", nil, producer)

	require.NoError(t, err)
	assert.Equal(t, "value", value)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBeforeEvictRuleClearsStaleEntries(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(&registry.Operation{Pattern: "products:list", Tier: types.TierHot})
	reg.MustRegister(&registry.Operation{
		Pattern: "products:update",
		Tier:    types.TierHot,
		EvictRules: []registry.EvictRule{
			{Patterns: []string{"products:list"}, Timing: types.EvictBefore},
		},
	})
	store := stores.NewStore(0, nil)
	o, _ := newTestOrchestrator(reg, store)

	listProducer, listCalls := countingProducer("stale list")
	ctx := tenant.WithTenant(context.Background(), "T1")
	_, _ = o.GetOrCompute(ctx, "products:list", nil, listProducer)
	require.Equal(t, 1, store.Len())

	writeProducer, _ := countingProducer("written")
	_, err := o.GetOrCompute(ctx, "products:update", []any{"sku-1"}, writeProducer)
	require.NoError(t, err)

	_, _ = o.GetOrCompute(ctx, "products:list", nil, listProducer)
	assert.Equal(t, 2, *listCalls)
}

func TestAfterEvictRuleSeesResult(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(&registry.Operation{Pattern: "inventory:low-stock", Tier: types.TierHot})
	reg.MustRegister(&registry.Operation{
		Pattern: "inventory:adjust",
		Tier:    types.TierHot,
		EvictRules: []registry.EvictRule{
			{
				Patterns: []string{"inventory:low-stock"},
				Timing:   types.EvictAfter,
				When: func(result any) bool {
					adjusted, ok := result.(int)
					return ok && adjusted != 0
				},
			},
		},
	})
	store := stores.NewStore(0, nil)
	o, _ := newTestOrchestrator(reg, store)

	ctx := tenant.WithTenant(context.Background(), "T1")
	lowStock, lowCalls := countingProducer([]string{"sku-9"})
	_, _ = o.GetOrCompute(ctx, "inventory:low-stock", nil, lowStock)

	// a no-op adjustment keeps the cached list
	noop, _ := countingProducer(0)
	_, _ = o.GetOrCompute(ctx, "inventory:adjust", []any{"sku-9", 0}, noop)
	_, _ = o.GetOrCompute(ctx, "inventory:low-stock", nil, lowStock)
	assert.Equal(t, 1, *lowCalls)

	// a real adjustment invalidates it
	adjust, _ := countingProducer(5)
	_, _ = o.GetOrCompute(ctx, "inventory:adjust", []any{"sku-9", 5}, adjust)
	_, _ = o.GetOrCompute(ctx, "inventory:low-stock", nil, lowStock)
	assert.Equal(t, 2, *lowCalls)
}
