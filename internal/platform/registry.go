package platform

import (
	"fmt"
	"strings"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/qerr"
)

// Registry maps platform IDs to platforms. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	byID  map[ir.PlatformID]Platform
	order []ir.PlatformID
}

// NewRegistry builds a registry. Duplicate or invalid IDs are rejected.
func NewRegistry(platforms ...Platform) (*Registry, error) {
	r := &Registry{byID: make(map[ir.PlatformID]Platform, len(platforms))}
	for _, p := range platforms {
		id := p.ID()
		if !id.Valid() {
			return nil, fmt.Errorf("platform %q is not supported", id)
		}
		if _, dup := r.byID[id]; dup {
			return nil, fmt.Errorf("platform %q registered twice", id)
		}
		r.byID[id] = p
		r.order = append(r.order, id)
	}
	return r, nil
}

// IDs returns registered platform IDs in registration order.
func (r *Registry) IDs() []ir.PlatformID {
	return append([]ir.PlatformID(nil), r.order...)
}

// Platforms returns registered platforms in registration order.
func (r *Registry) Platforms() []Platform {
	out := make([]Platform, len(r.order))
	for i, id := range r.order {
		out[i] = r.byID[id]
	}
	return out
}

// Get returns the platform for id. Unknown platforms fail with
// KindUnknownDataset listing the registered IDs as suggestions.
func (r *Registry) Get(id ir.PlatformID) (Platform, error) {
	if p, ok := r.byID[id]; ok {
		return p, nil
	}
	suggestions := make([]string, len(r.order))
	for i, id := range r.order {
		suggestions[i] = string(id)
	}
	return nil, qerr.New(qerr.KindUnknownDataset, "unknown platform %q", id).
		WithSuggestions(suggestions).
		WithDetail("platform", string(id))
}

// Lookup resolves a user-supplied platform name, accepting vendor aliases
// in any case, then calls Get.
func (r *Registry) Lookup(name string) (Platform, error) {
	return r.Get(ParseID(name))
}

var idAliases = map[string]ir.PlatformID{
	"kql":          ir.PlatformKQL,
	"defender":     ir.PlatformKQL,
	"mde":          ir.PlatformKQL,
	"sentinel":     ir.PlatformKQL,
	"cbc":          ir.PlatformCBC,
	"carbonblack":  ir.PlatformCBC,
	"carbon_black": ir.PlatformCBC,
	"cortex":       ir.PlatformCortex,
	"xql":          ir.PlatformCortex,
	"xdr":          ir.PlatformCortex,
	"s1":           ir.PlatformS1,
	"s1ql":         ir.PlatformS1,
	"sentinelone":  ir.PlatformS1,
}

// ParseID normalises a platform name. Unrecognised names are returned
// lower-cased so error messages echo them.
func ParseID(name string) ir.PlatformID {
	key := strings.ToLower(strings.TrimSpace(name))
	if id, ok := idAliases[key]; ok {
		return id
	}
	return ir.PlatformID(key)
}
