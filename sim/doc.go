// Package sim provides the output caching and reporting layer for an
// energy-system market simulation.
//
// # Reading Guide
//
// Start with these three files to understand the caching pipeline:
//   - bus.go: the event dispatcher producers publish cached quantities to
//   - cache.go: the OutputCache that accumulates frames per quantity and
//     drains them to sinks at period boundaries
//   - quantities.go: per-quantity consolidation (merge, clean, annotate)
//
// # Architecture
//
// Producers anywhere in the simulation publish labeled frames on a Bus topic
// (DefaultCacheTopic). An OutputCache subscribed to that topic buffers every
// accepted frame in memory, tagged with its arrival order. Once per period
// the driving loop calls Consolidate, which merges each quantity's buffered
// frames into a single table, cleans it, annotates it with agent metadata and
// routes it through the quantity's bound sink. Containers are emptied after
// a successful flush; nothing survives a period boundary.
//
// Quantity computations are registered by name in package-level registries:
//   - OutputQuantities: consolidation functions for cached quantities
//     (capacity, production, lcoe)
//   - MarketQuantities: sectoral market outputs saved directly each period
//     (capacity, consumption, supply, costs)
//
// Tabular data is handled by the gota dataframe library throughout; frames
// are long-format tables whose value column carries the quantity name.
//
// # Key Extension Points
//
//   - ConsolidateFunc: merge+clean policy for one cached quantity
//   - MarketQuantityFunc: computation of one sectoral market output
//   - SinkFactory / RegisterSink: persistence formats for consolidated tables
package sim
