package portal

import (
	"fmt"

	"rfpsonar/internal/extract"
	"rfpsonar/internal/logger"
)

// Built-in jurisdiction ids, matching the ids used in configuration.
const (
	JurisdictionKentucky      = "kentucky"
	JurisdictionMassachusetts = "massachusetts"
	JurisdictionPennsylvania  = "pennsylvania"
	JurisdictionPuertoRico    = "puertorico"
	JurisdictionVirginia      = "virginia"
)

// Registry holds the known jurisdiction adapters keyed by id.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

// NewRegistry builds a registry with every built-in jurisdiction adapter.
func NewRegistry(pipeline *extract.Pipeline, log *logger.Logger) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}

	r.Register(NewKentucky(pipeline, log))
	r.Register(NewMassachusetts(pipeline, log))
	r.Register(NewPennsylvania(log))
	r.Register(NewPuertoRico(pipeline, log))
	r.Register(NewVirginia(pipeline, log))

	return r
}

// Register adds an adapter, replacing any previous one with the same id.
func (r *Registry) Register(a Adapter) {
	if _, exists := r.adapters[a.ID()]; !exists {
		r.order = append(r.order, a.ID())
	}
	r.adapters[a.ID()] = a
}

// Get returns the adapter for a jurisdiction id.
func (r *Registry) Get(id string) (Adapter, error) {
	a, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJurisdiction, id)
	}

	return a, nil
}

// IDs returns the registered jurisdiction ids in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}
