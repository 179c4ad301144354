package keys

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/registry"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/tenant"
)

func newTestDeriver() *Deriver {
	d := NewDeriver(nil)
	d.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return d
}

func TestDeriveDeterministic(t *testing.T) {
	d := newTestDeriver()
	op := &registry.Operation{Pattern: "products:list"}
	args := []any{map[string]any{"limit": 20, "offset": 0}}

	ctx := tenant.WithTenant(context.Background(), "tenant-a")
	first := d.Derive(ctx, op, args)
	second := d.Derive(ctx, op, args)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "products:list:tenant-a:"))
}

func TestDeriveTenantsGetDistinctKeys(t *testing.T) {
	d := newTestDeriver()
	op := &registry.Operation{Pattern: "products:list"}
	args := []any{map[string]any{"limit": 20, "offset": 0}}

	keyA := d.Derive(tenant.WithTenant(context.Background(), "T1"), op, args)
	keyB := d.Derive(tenant.WithTenant(context.Background(), "T2"), op, args)

	assert.NotEqual(t, keyA, keyB)
}

func TestDeriveDistinctParams(t *testing.T) {
	d := newTestDeriver()
	op := &registry.Operation{Pattern: "products:list"}
	ctx := tenant.WithTenant(context.Background(), "T1")

	page1 := d.Derive(ctx, op, []any{map[string]any{"limit": 20, "offset": 0}})
	page2 := d.Derive(ctx, op, []any{map[string]any{"limit": 20, "offset": 20}})

	assert.NotEqual(t, page1, page2)
}

func TestDeriveIgnoresUnknownFields(t *testing.T) {
	d := newTestDeriver()
	op := &registry.Operation{Pattern: "orders:search"}
	ctx := tenant.WithTenant(context.Background(), "T1")

	bare := d.Derive(ctx, op, []any{map[string]any{"search": "widget"}})
	noisy := d.Derive(ctx, op, []any{map[string]any{"search": "widget", "requestTrace": "abc123"}})

	assert.Equal(t, bare, noisy)
}

func TestDeriveVersionChangesKey(t *testing.T) {
	d := newTestDeriver()
	ctx := tenant.WithTenant(context.Background(), "T1")
	args := []any{"sku-100"}

	v1 := d.Derive(ctx, &registry.Operation{Pattern: "products:detail", Version: 1}, args)
	v2 := d.Derive(ctx, &registry.Operation{Pattern: "products:detail", Version: 2}, args)

	assert.NotEqual(t, v1, v2)
}

func TestDeriveCustomKeyFuncWins(t *testing.T) {
	d := newTestDeriver()
	op := &registry.Operation{
		Pattern: "products:list",
		KeyFunc: func(args []any) string { return "custom-key" },
	}

	key := d.Derive(tenant.WithTenant(context.Background(), "T1"), op, []any{"anything"})
	assert.Equal(t, "custom-key", key)
}

func TestResolveTenantPrecedence(t *testing.T) {
	d := newTestDeriver()
	uuidArg := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	fieldArg := map[string]any{"tenantId": "from-field"}

	ctx := tenant.WithTenant(context.Background(), "from-context")
	assert.Equal(t, "from-context", d.ResolveTenant(ctx, []any{uuidArg, fieldArg}))

	assert.Equal(t, uuidArg, d.ResolveTenant(context.Background(), []any{uuidArg, fieldArg}))
	assert.Equal(t, "from-field", d.ResolveTenant(context.Background(), []any{"not-a-uuid", fieldArg}))
	assert.Equal(t, "", d.ResolveTenant(context.Background(), []any{"not-a-uuid"}))
}

func TestDeriveNoTenantUsesPlaceholder(t *testing.T) {
	d := newTestDeriver()
	op := &registry.Operation{Pattern: "dashboard:summary"}

	key := d.Derive(context.Background(), op, nil)
	assert.True(t, strings.HasPrefix(key, "dashboard:summary:-:"))
}

func TestDeriveFallbackOnUnserializableField(t *testing.T) {
	d := newTestDeriver()
	op := &registry.Operation{Pattern: "reports:custom"}
	ctx := tenant.WithTenant(context.Background(), "T1")
	args := []any{map[string]any{"filters": make(chan int)}}

	key := d.Derive(ctx, op, args)
	require.True(t, strings.HasPrefix(key, "reports:custom:T1:"))

	// same minute bucket, same fallback key
	assert.Equal(t, key, d.Derive(ctx, op, args))

	d.now = func() time.Time { return time.Unix(1_700_000_000+120, 0) }
	assert.NotEqual(t, key, d.Derive(ctx, op, args))
}
