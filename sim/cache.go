package sim

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ErrMissingQuantity is returned by Cache when neither the call nor the
// frame itself names the quantity the data belongs to.
var ErrMissingQuantity = errors.New("missing quantity identifier")

// CacheSectorLabel is the sector name the cache's sinks are bound to.
const CacheSectorLabel = "Cache"

// CacheOptions tunes OutputCache construction. The zero value selects the
// default topic, the package registry and the default sink factory.
type CacheOptions struct {
	Topic       string
	Registry    *Registry[ConsolidateFunc]
	SinkFactory SinkFactory
}

// OutputCache accumulates intermediate quantities published on the bus and
// drains them to persistent storage at period boundaries.
//
// One container exists per configured-and-registered quantity; every
// accepted Cache call appends a copy of the payload at the next arrival
// index. Consolidate merges each non-empty container through the quantity's
// registered function, persists the result via the bound sink, and resets
// every container. The cache lives for the whole simulation run; Close
// detaches it from the bus.
type OutputCache struct {
	bus      *Bus
	sub      Subscription
	registry *Registry[ConsolidateFunc]

	// quantities holds the retained quantity names in configuration order,
	// which fixes the consolidation order.
	quantities []string
	buffers    map[string][]Frame
	sinks      map[string]Sink
	agents     AgentLookup
}

// NewOutputCache builds a cache for the given output specifications and
// sector topology and subscribes it to the bus.
//
// Specifications whose quantity is not registered are silently skipped: no
// container, no sink, no error. This keeps partially unknown configurations
// usable. Sink resolution is delegated to the sink factory, the same
// construction the sectoral output system uses.
func NewOutputCache(bus *Bus, params []OutputParams, sectors []Sector, opts CacheOptions) (*OutputCache, error) {
	topic := opts.Topic
	if topic == "" {
		topic = DefaultCacheTopic
	}
	registry := opts.Registry
	if registry == nil {
		registry = OutputQuantities
	}
	factory := opts.SinkFactory
	if factory == nil {
		factory = NewSink
	}

	c := &OutputCache{
		bus:      bus,
		registry: registry,
		buffers:  make(map[string][]Frame),
		sinks:    make(map[string]Sink),
		agents:   ExtractAgents(sectors),
	}
	for _, p := range params {
		name := p.Quantity.Name
		if !registry.Has(name) {
			logrus.Debugf("output cache: skipping unregistered quantity %q", name)
			continue
		}
		if _, ok := c.buffers[name]; ok {
			continue
		}
		sink, err := factory(p, CacheSectorLabel)
		if err != nil {
			return nil, fmt.Errorf("resolving sink for %q: %w", name, err)
		}
		c.quantities = append(c.quantities, name)
		c.buffers[name] = nil
		c.sinks[name] = sink
	}

	c.sub = bus.Subscribe(topic, c.Cache)
	logrus.Debugf("output cache: caching %v on topic %q", c.quantities, topic)
	return c, nil
}

// Quantities returns the retained quantity names in consolidation order.
func (c *OutputCache) Quantities() []string {
	out := make([]string, len(c.quantities))
	copy(out, c.quantities)
	return out
}

// Len reports how many entries are buffered for quantity.
func (c *OutputCache) Len(quantity string) int {
	return len(c.buffers[quantity])
}

// Cache buffers data for quantity. When quantity is empty the frame's own
// name is used; if both are empty the call fails with ErrMissingQuantity.
// Data for quantities the cache was not configured for is silently dropped:
// producers publish unconditionally and the configuration decides what is
// kept. The payload is deep-copied and relabeled, so later mutation by the
// producer cannot reach the buffered entry. Never touches disk.
func (c *OutputCache) Cache(data Frame, quantity string) error {
	if quantity == "" {
		quantity = data.Name
	}
	if quantity == "" {
		return ErrMissingQuantity
	}
	buffer, ok := c.buffers[quantity]
	if !ok {
		return nil
	}
	order := len(buffer)
	c.buffers[quantity] = append(buffer, data.Copy().Rename(quantity))
	logrus.Debugf("output cache: buffered %q entry %d (%d rows)", quantity, order, data.Nrow())
	return nil
}

// Consolidate drains every non-empty container: the quantity's registered
// function merges and cleans the buffered entries with the agent metadata
// lookup, and the result goes through the quantity's bound sink for year.
// Empty containers are skipped without side effects.
//
// The first failure (lookup, consolidation or sink I/O) aborts remaining
// quantities and leaves all containers intact. On success every container
// is reset, restarting arrival indices at zero.
//
// The driving loop calls this once per period, after market quantities are
// saved and before the next period's producers start publishing.
func (c *OutputCache) Consolidate(year int) error {
	for _, quantity := range c.quantities {
		entries := c.buffers[quantity]
		if len(entries) == 0 {
			continue
		}
		fn, err := c.registry.Lookup(quantity)
		if err != nil {
			return fmt.Errorf("consolidating %q: %w", quantity, err)
		}
		table, err := fn(entries, c.agents)
		if err != nil {
			return fmt.Errorf("consolidating %q: %w", quantity, err)
		}
		if err := c.sinks[quantity](table, year); err != nil {
			return fmt.Errorf("persisting %q: %w", quantity, err)
		}
		logrus.Infof("output cache: flushed %d %q entries for year %d", len(entries), quantity, year)
	}
	for quantity := range c.buffers {
		c.buffers[quantity] = nil
	}
	return nil
}

// Close detaches the cache from the bus. Buffered entries are kept; a final
// Consolidate may still flush them.
func (c *OutputCache) Close() {
	c.bus.Unsubscribe(c.sub)
}
