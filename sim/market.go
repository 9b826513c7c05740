package sim

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
)

// MarketSnapshot carries the market-level tables for one simulated year.
// Each table is long-format with its value column named after the quantity
// it holds (capacity, consumption, supply, costs).
type MarketSnapshot struct {
	Year        int
	Capacity    dataframe.DataFrame
	Consumption dataframe.DataFrame
	Supply      dataframe.DataFrame
	Costs       dataframe.DataFrame
}

// MarketQuantityFunc computes one sectoral output from the market snapshot.
// params carries the quantity's extra keyword parameters from the output
// specification (sum_over, drop). Implementations must not modify the
// snapshot's tables.
type MarketQuantityFunc func(m MarketSnapshot, params map[string]any) (Frame, error)

func init() {
	mustRegisterMarketQuantity("capacity", marketCapacity)
	mustRegisterMarketQuantity("consumption", marketConsumption)
	mustRegisterMarketQuantity("supply", marketSupply)
	mustRegisterMarketQuantity("costs", marketCosts)
}

func marketCapacity(m MarketSnapshot, _ map[string]any) (Frame, error) {
	return Frame{Name: "capacity", Data: m.Capacity.Copy()}, nil
}

func marketConsumption(m MarketSnapshot, params map[string]any) (Frame, error) {
	return marketQuantity(m.Consumption, "consumption", params)
}

func marketSupply(m MarketSnapshot, params map[string]any) (Frame, error) {
	return marketQuantity(m.Supply, "supply", params)
}

func marketCosts(m MarketSnapshot, params map[string]any) (Frame, error) {
	return marketQuantity(m.Costs, "costs", params)
}

// marketQuantity applies the shared sum_over/drop reshaping: sum_over
// aggregates the value column over the named dimensions (summing within the
// remaining ones), drop removes dimension columns from the result.
func marketQuantity(data dataframe.DataFrame, value string, params map[string]any) (Frame, error) {
	sumOver, err := stringList(params, "sum_over")
	if err != nil {
		return Frame{}, err
	}
	drop, err := stringList(params, "drop")
	if err != nil {
		return Frame{}, err
	}

	out := data
	if len(sumOver) > 0 {
		remove := make(map[string]bool, len(sumOver)+1)
		for _, name := range sumOver {
			remove[name] = true
		}
		remove[value] = true
		groupCols := make([]string, 0)
		for _, name := range out.Names() {
			if !remove[name] {
				groupCols = append(groupCols, name)
			}
		}
		if len(groupCols) == 0 {
			return Frame{}, fmt.Errorf("sum_over %v leaves %q with no dimensions", sumOver, value)
		}
		groups := out.GroupBy(groupCols...)
		if groups.Err != nil {
			return Frame{}, fmt.Errorf("grouping %q by %v: %w", value, groupCols, groups.Err)
		}
		out = groups.Aggregation(
			[]dataframe.AggregationType{dataframe.Aggregation_SUM},
			[]string{value},
		)
		if err := out.Error(); err != nil {
			return Frame{}, fmt.Errorf("summing %q over %v: %w", value, sumOver, err)
		}
		out = out.Rename(value, value+"_SUM")
	}
	if len(drop) > 0 {
		present := make([]string, 0, len(drop))
		for _, name := range drop {
			if hasColumn(out, name) {
				present = append(present, name)
			}
		}
		if len(present) > 0 {
			out = out.Drop(present)
			if err := out.Error(); err != nil {
				return Frame{}, fmt.Errorf("dropping %v from %q: %w", drop, value, err)
			}
		}
	}
	return Frame{Name: value, Data: out}, nil
}

// stringList reads an optional list-of-strings parameter. A lone string is
// accepted as a one-element list, matching the YAML shorthand.
func stringList(params map[string]any, key string) ([]string, error) {
	raw, ok := params[key]
	if !ok {
		return nil, nil
	}
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("parameter %q: expected string, got %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("parameter %q: expected string list, got %T", key, raw)
	}
}

// SaveOutputs persists every configured sectoral output for one market
// snapshot.
type SaveOutputs func(m MarketSnapshot) error

// OutputsOptions tunes OutputsFactory. The zero value selects the package
// market registry and the default sink factory.
type OutputsOptions struct {
	Registry    *Registry[MarketQuantityFunc]
	SinkFactory SinkFactory
}

type boundOutput struct {
	name   string
	fn     MarketQuantityFunc
	params map[string]any
	sink   Sink
}

// OutputsFactory resolves the output specifications for one sector into a
// single save callable, pairing each quantity function with its bound sink.
// Unlike the output cache, an unregistered quantity here is a configuration
// error: sectoral outputs are saved unconditionally each period, so a typo
// must surface at construction, not be skipped silently.
func OutputsFactory(params []OutputParams, sectorName string, opts OutputsOptions) (SaveOutputs, error) {
	registry := opts.Registry
	if registry == nil {
		registry = MarketQuantities
	}
	factory := opts.SinkFactory
	if factory == nil {
		factory = NewSink
	}

	bound := make([]boundOutput, 0, len(params))
	for _, p := range params {
		fn, err := registry.Lookup(p.Quantity.Name)
		if err != nil {
			return nil, fmt.Errorf("outputs for sector %q: %w", sectorName, err)
		}
		sink, err := factory(p, sectorName)
		if err != nil {
			return nil, fmt.Errorf("outputs for sector %q: %w", sectorName, err)
		}
		bound = append(bound, boundOutput{
			name:   p.Quantity.Name,
			fn:     fn,
			params: p.Quantity.Params,
			sink:   sink,
		})
	}

	return func(m MarketSnapshot) error {
		for _, b := range bound {
			table, err := b.fn(m, b.params)
			if err != nil {
				return fmt.Errorf("computing %q for sector %q: %w", b.name, sectorName, err)
			}
			if err := b.sink(table, m.Year); err != nil {
				return fmt.Errorf("persisting %q for sector %q: %w", b.name, sectorName, err)
			}
		}
		return nil
	}, nil
}
