package sim

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// demoTechnologies are the technology labels used by the synthetic workload.
var demoTechnologies = []string{"gasCCGT", "windturbine", "solarPV"}

// demoCategories alternate across a sector's agents.
var demoCategories = []string{"newcapa", "retrofit"}

// BuildTopology creates the synthetic sector/agent topology for a
// demonstration run. Agent ids are fresh UUIDs; names are deterministic per
// sector so runs stay readable.
func BuildTopology(cfgs []SectorConfig) []Sector {
	sectors := make([]Sector, 0, len(cfgs))
	for _, cfg := range cfgs {
		agents := make([]Agent, 0, cfg.Agents)
		for i := 0; i < cfg.Agents; i++ {
			agents = append(agents, Agent{
				UUID:     uuid.NewString(),
				Name:     fmt.Sprintf("%s-A%d", cfg.Name, i+1),
				Category: demoCategories[i%len(demoCategories)],
			})
		}
		sectors = append(sectors, Sector{Name: cfg.Name, Agents: agents})
	}
	return sectors
}

// CapacityWorkload samples synthetic capacity frames, standing in for the
// investment sub-steps that publish intermediate capacities during a real
// run. Capacities are lognormal; a fraction of rows is zeroed to exercise
// the consolidation cleaning.
type CapacityWorkload struct {
	capacity distuv.LogNormal
	zeroed   distuv.Bernoulli
}

// NewCapacityWorkload creates a seeded workload generator.
func NewCapacityWorkload(seed uint64) *CapacityWorkload {
	return &CapacityWorkload{
		capacity: distuv.LogNormal{Mu: 3, Sigma: 0.8, Src: rand.NewSource(seed)},
		zeroed:   distuv.Bernoulli{P: 0.2, Src: rand.NewSource(seed + 1)},
	}
}

// Frame samples one capacity frame for the sector's agents: one row per
// agent and technology, tagged with the simulated year.
func (w *CapacityWorkload) Frame(sector Sector, year int) Frame {
	n := len(sector.Agents) * len(demoTechnologies)
	agents := make([]string, 0, n)
	technologies := make([]string, 0, n)
	years := make([]string, 0, n)
	values := make([]float64, 0, n)
	for _, agent := range sector.Agents {
		for _, tech := range demoTechnologies {
			agents = append(agents, agent.UUID)
			technologies = append(technologies, tech)
			years = append(years, fmt.Sprintf("%d", year))
			value := w.capacity.Rand()
			if w.zeroed.Rand() == 1 {
				value = 0
			}
			values = append(values, value)
		}
	}
	df := dataframe.New(
		stringColumn("agent", agents),
		stringColumn("technology", technologies),
		stringColumn("year", years),
		floatColumn("capacity", values),
	)
	return NewFrame("capacity", df)
}
