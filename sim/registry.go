package sim

import (
	"errors"
	"fmt"
	"sort"
)

// Registration errors. Callers should compare with errors.Is; the wrapped
// message carries the offending quantity name.
var (
	// ErrDuplicateQuantity is returned when a quantity name is registered twice.
	ErrDuplicateQuantity = errors.New("quantity already registered")
	// ErrUnknownQuantity is returned when looking up a name never registered.
	ErrUnknownQuantity = errors.New("unknown quantity")
)

// Registry maps quantity names to computation functions of type F. The two
// package-level instances are OutputQuantities (consolidation of cached
// data) and MarketQuantities (sectoral market outputs).
type Registry[F any] struct {
	entries map[string]F
}

// NewRegistry creates an empty registry.
func NewRegistry[F any]() *Registry[F] {
	return &Registry[F]{entries: make(map[string]F)}
}

// Register adds fn under name. Registering an existing name fails with
// ErrDuplicateQuantity; silent overwrite would hide configuration bugs.
func (r *Registry[F]) Register(name string, fn F) error {
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateQuantity, name)
	}
	r.entries[name] = fn
	return nil
}

// Lookup returns the function registered under name, or ErrUnknownQuantity.
func (r *Registry[F]) Lookup(name string) (F, error) {
	fn, ok := r.entries[name]
	if !ok {
		var zero F
		return zero, fmt.Errorf("%w: %q", ErrUnknownQuantity, name)
	}
	return fn, nil
}

// Has reports whether name is registered.
func (r *Registry[F]) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Names returns the registered quantity names in sorted order.
func (r *Registry[F]) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OutputQuantities holds the consolidation functions for cached quantities.
// Entries are added through RegisterOutputQuantity so results carry the
// quantity's name.
var OutputQuantities = NewRegistry[ConsolidateFunc]()

// MarketQuantities holds the sectoral market output computations. Entries
// are added through RegisterMarketQuantity.
var MarketQuantities = NewRegistry[MarketQuantityFunc]()

// RegisterOutputQuantity registers fn under name in OutputQuantities. The
// function is wrapped so a successfully returned table is relabeled with the
// quantity's name; argument handling is unchanged.
func RegisterOutputQuantity(name string, fn ConsolidateFunc) error {
	wrapped := func(entries []Frame, agents AgentLookup) (Frame, error) {
		out, err := fn(entries, agents)
		if err != nil {
			return Frame{}, err
		}
		out.Name = name
		return out, nil
	}
	return OutputQuantities.Register(name, wrapped)
}

// RegisterMarketQuantity registers fn under name in MarketQuantities, with
// the same result-labeling wrap as RegisterOutputQuantity.
func RegisterMarketQuantity(name string, fn MarketQuantityFunc) error {
	wrapped := func(m MarketSnapshot, params map[string]any) (Frame, error) {
		out, err := fn(m, params)
		if err != nil {
			return Frame{}, err
		}
		out.Name = name
		return out, nil
	}
	return MarketQuantities.Register(name, wrapped)
}

func mustRegisterOutputQuantity(name string, fn ConsolidateFunc) {
	if err := RegisterOutputQuantity(name, fn); err != nil {
		panic(err)
	}
}

func mustRegisterMarketQuantity(name string, fn MarketQuantityFunc) {
	if err := RegisterMarketQuantity(name, fn); err != nil {
		panic(err)
	}
}
