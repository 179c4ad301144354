package tenant

import (
	"sort"
	"sync"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
)

// Registry tracks the set of tenants this instance serves. Warmup and
// reporting iterate over it; request middleware activates tenants on
// first sight.
type Registry struct {
	mu     sync.RWMutex
	active map[string]bool
	logger *logging.ChanneledLogger
}

// NewRegistry creates an empty tenant registry.
func NewRegistry(logger *logging.ChanneledLogger) *Registry {
	return &Registry{
		active: make(map[string]bool),
		logger: logger,
	}
}

// Activate marks a tenant as active. Idempotent.
func (r *Registry) Activate(tenantID string) {
	if tenantID == "" {
		return
	}
	r.mu.Lock()
	known := r.active[tenantID]
	r.active[tenantID] = true
	r.mu.Unlock()

	if !known && r.logger != nil {
		r.logger.Tenant().Info("Tenant activated", "tenantId", tenantID)
	}
}

// Deactivate removes a tenant from the active set.
func (r *Registry) Deactivate(tenantID string) {
	r.mu.Lock()
	delete(r.active, tenantID)
	r.mu.Unlock()
}

// IsActive reports whether a tenant is currently active.
func (r *Registry) IsActive(tenantID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active[tenantID]
}

// ActiveTenants returns a sorted copy of the active tenant ids.
func (r *Registry) ActiveTenants() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tenants := make([]string, 0, len(r.active))
	for id := range r.active {
		tenants = append(tenants, id)
	}
	sort.Strings(tenants)
	return tenants
}
