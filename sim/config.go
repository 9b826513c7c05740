package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// QuantitySpec names the quantity an output parameter refers to, plus any
// extra keyword parameters forwarded to the quantity function (e.g. sum_over
// and drop for market quantities).
//
// YAML accepts either a bare name or a mapping with a mandatory name key:
//
//	quantity: supply
//	quantity: {name: supply, sum_over: [timeslice]}
type QuantitySpec struct {
	Name   string
	Params map[string]any
}

// UnmarshalYAML implements the scalar/mapping shorthand described above.
func (q *QuantitySpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		q.Name = value.Value
		q.Params = nil
		return nil
	}
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("parsing quantity spec: %w", err)
	}
	name, ok := raw["name"].(string)
	if !ok || name == "" {
		return fmt.Errorf("quantity spec mapping needs a name key")
	}
	delete(raw, "name")
	q.Name = name
	if len(raw) > 0 {
		q.Params = raw
	} else {
		q.Params = nil
	}
	return nil
}

// OutputParams is one output specification: which quantity to output and how
// to persist it. Beyond Quantity all fields are consumed by the sink factory.
//
// YAML accepts a bare quantity name as shorthand for {quantity: name}:
//
//	outputs_cache:
//	  - capacity
//	  - quantity: lcoe
//	    sink: json
//	    filename: "{default_output_dir}/{quantity}-{year}{suffix}"
//	    overwrite: true
type OutputParams struct {
	Quantity QuantitySpec `yaml:"quantity"`
	// Sink names the storage procedure ("csv", "json"). When empty it is
	// guessed from the Filename extension, falling back to csv.
	Sink string `yaml:"sink"`
	// Filename is the templated output path; see ExpandFilename for the
	// recognized markers. Empty means DefaultFilenameTemplate.
	Filename string `yaml:"filename"`
	// OutputDir substitutes the {default_output_dir} marker. Empty means
	// the current directory.
	OutputDir string `yaml:"output_dir"`
	// Overwrite allows clobbering an existing output file.
	Overwrite bool `yaml:"overwrite"`
}

// UnmarshalYAML implements the bare-string shorthand.
func (p *OutputParams) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*p = OutputParams{Quantity: QuantitySpec{Name: value.Value}}
		return nil
	}
	type plain OutputParams
	var raw plain
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("parsing output parameters: %w", err)
	}
	*p = OutputParams(raw)
	return nil
}

// SectorConfig describes one synthetic sector of the demonstration topology.
type SectorConfig struct {
	Name   string `yaml:"name"`
	Agents int    `yaml:"agents"`
}

// SimulationConfig is the YAML configuration for the demonstration run: the
// period range, the sector topology and the cached output parameters.
type SimulationConfig struct {
	OutputDir    string         `yaml:"output_dir"`
	Periods      []int          `yaml:"periods"`
	Topic        string         `yaml:"topic"`
	Sectors      []SectorConfig `yaml:"sectors"`
	OutputsCache []OutputParams `yaml:"outputs_cache"`
}

// LoadSimulationConfig reads and parses a YAML simulation configuration file.
func LoadSimulationConfig(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading simulation config: %w", err)
	}
	var cfg SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing simulation config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the parts of the configuration that would otherwise fail
// deep inside a run: sink names and sector sizes. Unregistered cached
// quantities are not an error here; the cache skips them at construction.
func (c *SimulationConfig) Validate() error {
	if len(c.Periods) == 0 {
		return fmt.Errorf("simulation config needs at least one period")
	}
	for _, p := range c.OutputsCache {
		if p.Quantity.Name == "" {
			return fmt.Errorf("output parameter without a quantity name")
		}
		if p.Sink != "" && !HasSink(p.Sink) {
			return fmt.Errorf("unknown sink %q for quantity %q", p.Sink, p.Quantity.Name)
		}
	}
	for _, s := range c.Sectors {
		if s.Agents < 0 {
			return fmt.Errorf("sector %q has negative agent count %d", s.Name, s.Agents)
		}
	}
	return nil
}
