// Package keys derives deterministic cache keys from operation patterns,
// call arguments, and the ambient tenant context.
package keys

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/registry"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/tenant"
)

// Fields extracted by name from map-shaped arguments. Anything else is
// ignored so keys stay short and stable across callers.
var wellKnownFields = []string{"id", "tenantId", "limit", "offset", "filters", "search", "sortBy"}

// Deriver builds cache keys of the form <pattern>:<tenant|->:<hash>.
type Deriver struct {
	logger *logging.ChanneledLogger
	now    func() time.Time
}

// NewDeriver creates a key deriver.
func NewDeriver(logger *logging.ChanneledLogger) *Deriver {
	return &Deriver{logger: logger, now: time.Now}
}

// Derive produces the cache key for one call. A custom key function on the
// operation takes precedence over everything else. Derivation never fails;
// unserializable arguments degrade to a time-bucketed fallback hash.
func (d *Deriver) Derive(ctx context.Context, op *registry.Operation, args []any) string {
	if op.KeyFunc != nil {
		return op.KeyFunc(args)
	}

	tenantID := d.ResolveTenant(ctx, args)
	params, err := d.canonicalParams(ctx, op, args)
	if err != nil {
		if d.logger != nil {
			d.logger.Cache().Warn("Cache key derivation degraded to fallback hash",
				"pattern", op.Pattern, "error", err)
		}
		return d.fallbackKey(op, tenantID, args)
	}
	return formatKey(op.Pattern, tenantID, hashParams(params))
}

// ResolveTenant applies the tenant extraction precedence: ambient context
// first, then a uuid-shaped positional argument, then a tenantId field
// inside a map argument. Returns "" when no tenant is resolvable.
func (d *Deriver) ResolveTenant(ctx context.Context, args []any) string {
	if id, ok := tenant.FromContext(ctx); ok {
		return id
	}
	for _, arg := range args {
		s, ok := arg.(string)
		if !ok {
			continue
		}
		if _, err := uuid.Parse(s); err == nil {
			return s
		}
	}
	for _, arg := range args {
		if m, ok := arg.(map[string]any); ok {
			if id, ok := m["tenantId"].(string); ok && id != "" {
				return id
			}
		}
	}
	return ""
}

func (d *Deriver) canonicalParams(ctx context.Context, op *registry.Operation, args []any) (map[string]string, error) {
	params := make(map[string]string)

	if id, ok := tenant.FromContext(ctx); ok {
		params["ctx.tenantId"] = id
	}
	if id, ok := tenant.UserFromContext(ctx); ok {
		params["ctx.userId"] = id
	}
	if op.Version > 0 {
		params["version"] = strconv.Itoa(op.Version)
	}

	for i, arg := range args {
		name := "arg" + strconv.Itoa(i)
		switch v := arg.(type) {
		case nil:
			// ignored
		case string:
			params[name] = v
		case bool:
			params[name] = strconv.FormatBool(v)
		case int:
			params[name] = strconv.Itoa(v)
		case int32:
			params[name] = strconv.FormatInt(int64(v), 10)
		case int64:
			params[name] = strconv.FormatInt(v, 10)
		case float32:
			params[name] = strconv.FormatFloat(float64(v), 'g', -1, 32)
		case float64:
			params[name] = strconv.FormatFloat(v, 'g', -1, 64)
		case map[string]any:
			for _, field := range wellKnownFields {
				fv, present := v[field]
				if !present || fv == nil {
					continue
				}
				rendered, err := renderField(fv)
				if err != nil {
					return nil, fmt.Errorf("field %s.%s: %w", name, field, err)
				}
				params[name+"."+field] = rendered
			}
		default:
			// complex and unrecognized values do not participate in the key
		}
	}
	return params, nil
}

func renderField(v any) (string, error) {
	switch fv := v.(type) {
	case string:
		return fv, nil
	case bool:
		return strconv.FormatBool(fv), nil
	case int:
		return strconv.Itoa(fv), nil
	case int64:
		return strconv.FormatInt(fv, 10), nil
	case float64:
		return strconv.FormatFloat(fv, 'g', -1, 64), nil
	case time.Time:
		return fv.UTC().Format(time.RFC3339), nil
	default:
		raw, err := json.Marshal(fv)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
}

// fallbackKey hashes a best-effort rendering of the arguments together with
// a one minute time bucket. Reuse across instants is sacrificed; key
// generation itself can no longer fail.
func (d *Deriver) fallbackKey(op *registry.Operation, tenantID string, args []any) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|", op.Pattern, op.Version)
	for _, arg := range args {
		raw, err := json.Marshal(arg)
		if err != nil {
			fmt.Fprintf(h, "%T|", arg)
			continue
		}
		h.Write(raw)
		h.Write([]byte{'|'})
	}
	bucket := d.now().Unix() / 60
	fmt.Fprintf(h, "bucket:%d", bucket)
	return formatKey(op.Pattern, tenantID, hex.EncodeToString(h.Sum(nil))[:16])
}

func hashParams(params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		fmt.Fprintf(h, "%s=%s;", name, params[name])
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func formatKey(pattern, tenantID, hash string) string {
	if tenantID == "" {
		tenantID = "-"
	}
	return pattern + ":" + tenantID + ":" + hash
}
