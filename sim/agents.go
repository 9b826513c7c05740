package sim

import "sort"

// Agent is the slice of the agent object model this layer needs: a unique
// identifier plus the descriptive fields used to annotate output rows.
type Agent struct {
	UUID     string
	Name     string
	Category string
}

// Sector groups the agents operating in one part of the energy system.
type Sector struct {
	Name   string
	Agents []Agent
}

// AgentInfo holds the descriptive columns written next to an agent's rows
// during consolidation. Field names match the output column names.
type AgentInfo struct {
	Agent  string // display name
	Type   string // agent category
	Sector string // owning sector name
}

// AgentLookup is a read-through chain of per-sector agent maps, queried in
// fixed order: the first layer holding a uuid wins. Keeping the layers
// separate (instead of merging into one map) preserves first-wins semantics
// without hidden overwrites when two sectors share an agent id.
type AgentLookup []map[string]AgentInfo

// Get returns the info recorded for uuid in the earliest layer that has it.
func (l AgentLookup) Get(uuid string) (AgentInfo, bool) {
	for _, layer := range l {
		if info, ok := layer[uuid]; ok {
			return info, true
		}
	}
	return AgentInfo{}, false
}

// UUIDs returns every agent id visible through the lookup, sorted.
func (l AgentLookup) UUIDs() []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, layer := range l {
		for uuid := range layer {
			if !seen[uuid] {
				seen[uuid] = true
				ids = append(ids, uuid)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// ExtractAgents builds the agent metadata lookup from the sector topology.
// Sectors contribute one layer each, in input order, so an agent id present
// in two sectors resolves to the earlier sector's entry. Inputs are not
// mutated; the result is read-only lookup data for one consolidation.
func ExtractAgents(sectors []Sector) AgentLookup {
	lookup := make(AgentLookup, 0, len(sectors))
	for _, sector := range sectors {
		lookup = append(lookup, extractSectorAgents(sector))
	}
	return lookup
}

// extractSectorAgents records {uuid: {agent, type, sector}} for one sector.
// Agents are walked sorted by display name so a duplicated uuid within a
// sector resolves deterministically (the later name wins, as the last write
// into the layer).
func extractSectorAgents(sector Sector) map[string]AgentInfo {
	name := sector.Name
	if name == "" {
		name = "unnamed"
	}
	agents := make([]Agent, len(sector.Agents))
	copy(agents, sector.Agents)
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })

	info := make(map[string]AgentInfo, len(agents))
	for _, agent := range agents {
		info[agent.UUID] = AgentInfo{
			Agent:  agent.Name,
			Type:   agent.Category,
			Sector: name,
		}
	}
	return info
}
