package sim

import (
	"fmt"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ConsolidateFunc merges one quantity's buffered frames into a single
// cleaned table, optionally annotated from the agent metadata lookup.
// Entries arrive in arrival order; implementations must not mutate them.
type ConsolidateFunc func(entries []Frame, agents AgentLookup) (Frame, error)

func init() {
	mustRegisterOutputQuantity("capacity", consolidateCapacity)
	mustRegisterOutputQuantity("production", consolidateProduction)
	mustRegisterOutputQuantity("lcoe", consolidateLCOE)
}

// CombineFrames merges buffered entries into one long-format table. Each
// entry's value column is first renamed to quantity, then successive entries
// are merged right-biased: every merge joins on all shared columns and keeps
// all rows of the later entry, so the final entry's row set determines the
// result unless earlier entries also match.
func CombineFrames(entries []Frame, quantity string) (dataframe.DataFrame, error) {
	if len(entries) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("no cached entries for %q", quantity)
	}
	acc := entries[0].Rename(quantity).Data
	if err := acc.Error(); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("combining %q entry 0: %w", quantity, err)
	}
	for i, entry := range entries[1:] {
		next := entry.Rename(quantity).Data
		keys := sharedColumns(acc, next)
		if len(keys) == 0 {
			return dataframe.DataFrame{}, fmt.Errorf("combining %q entry %d: no shared columns", quantity, i+1)
		}
		acc = acc.RightJoin(next, keys...)
		if err := acc.Error(); err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("combining %q entry %d: %w", quantity, i+1, err)
		}
	}
	return acc, nil
}

// sharedColumns returns the column names present in both tables, in a's
// column order.
func sharedColumns(a, b dataframe.DataFrame) []string {
	inB := make(map[string]bool, b.Ncol())
	for _, name := range b.Names() {
		inB[name] = true
	}
	shared := make([]string, 0)
	for _, name := range a.Names() {
		if inB[name] {
			shared = append(shared, name)
		}
	}
	return shared
}

// consolidateCapacity merges the cached capacity entries into one table:
// right-biased merge across arrivals, rows with zero capacity dropped,
// descriptive agent columns overwritten from the lookup, columns sorted
// alphabetically.
func consolidateCapacity(entries []Frame, agents AgentLookup) (Frame, error) {
	const quantity = "capacity"
	data, err := CombineFrames(entries, quantity)
	if err != nil {
		return Frame{}, err
	}
	data = data.Filter(dataframe.F{Colname: quantity, Comparator: series.Neq, Comparando: 0.0})
	if err := data.Error(); err != nil {
		return Frame{}, fmt.Errorf("dropping zero %s rows: %w", quantity, err)
	}
	data, err = annotateAgents(data, agents)
	if err != nil {
		return Frame{}, fmt.Errorf("annotating %s rows: %w", quantity, err)
	}
	data = sortColumns(data)
	if err := data.Error(); err != nil {
		return Frame{}, fmt.Errorf("sorting %s columns: %w", quantity, err)
	}
	return Frame{Name: quantity, Data: data}, nil
}

// consolidateProduction is a placeholder: production entries can be cached,
// but their merge+clean policy is not implemented yet.
func consolidateProduction(entries []Frame, agents AgentLookup) (Frame, error) {
	return Frame{}, fmt.Errorf("consolidation for %q is not implemented", "production")
}

// consolidateLCOE is a placeholder, like consolidateProduction.
func consolidateLCOE(entries []Frame, agents AgentLookup) (Frame, error) {
	return Frame{}, fmt.Errorf("consolidation for %q is not implemented", "lcoe")
}

// annotateAgents overwrites the agent, type and sector columns for every row
// whose agent column matches a uuid in the lookup. Rows with unknown ids are
// left untouched; tables without an agent column pass through unchanged.
func annotateAgents(data dataframe.DataFrame, agents AgentLookup) (dataframe.DataFrame, error) {
	if data.Nrow() == 0 || len(agents) == 0 || !hasColumn(data, "agent") {
		return data, nil
	}
	ids := data.Col("agent").Records()
	agentCol := make([]string, len(ids))
	copy(agentCol, ids)
	typeCol := columnStrings(data, "type")
	sectorCol := columnStrings(data, "sector")
	for i, id := range ids {
		if info, ok := agents.Get(id); ok {
			agentCol[i] = info.Agent
			typeCol[i] = info.Type
			sectorCol[i] = info.Sector
		}
	}
	data = data.
		Mutate(series.New(agentCol, series.String, "agent")).
		Mutate(series.New(typeCol, series.String, "type")).
		Mutate(series.New(sectorCol, series.String, "sector"))
	return data, data.Error()
}

// sortColumns returns the table with its columns in alphabetical order.
func sortColumns(data dataframe.DataFrame) dataframe.DataFrame {
	names := data.Names()
	sort.Strings(names)
	return data.Select(names)
}
