package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/energy-sim/energy-sim/sim"
)

var (
	configPath string // Path to the YAML simulation configuration
	logLevel   string // Log verbosity level
	outputDir  string // Override for the config's output directory
	seed       uint64 // Seed for synthetic capacity generation
	substeps   int    // Investment sub-steps per sector per period
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "energy-sim",
	Short: "Output caching demo for an energy-system market simulator",
}

// defaultConfig is used when no --config file is given.
func defaultConfig() *sim.SimulationConfig {
	return &sim.SimulationConfig{
		OutputDir: "output",
		Periods:   []int{2020, 2025, 2030},
		Sectors: []sim.SectorConfig{
			{Name: "residential", Agents: 3},
			{Name: "power", Agents: 4},
		},
		OutputsCache: []sim.OutputParams{
			{Quantity: sim.QuantitySpec{Name: "capacity"}},
		},
	}
}

// runCmd drives a demonstration simulation: synthetic sectors publish
// capacity frames on the bus during each period, and the output cache
// consolidates them to disk at every period boundary.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the output caching demonstration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := defaultConfig()
		if configPath != "" {
			cfg, err = sim.LoadSimulationConfig(configPath)
			if err != nil {
				return err
			}
		}
		if outputDir != "" {
			cfg.OutputDir = outputDir
		}
		for i := range cfg.OutputsCache {
			if cfg.OutputsCache[i].OutputDir == "" {
				cfg.OutputsCache[i].OutputDir = cfg.OutputDir
			}
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logrus.Infof("Starting run: %d periods, %d sectors, output dir %q",
			len(cfg.Periods), len(cfg.Sectors), cfg.OutputDir)
		startTime := time.Now()

		bus := sim.NewBus()
		defer bus.Close()

		sectors := sim.BuildTopology(cfg.Sectors)
		cache, err := sim.NewOutputCache(bus, cfg.OutputsCache, sectors, sim.CacheOptions{Topic: cfg.Topic})
		if err != nil {
			return err
		}
		defer cache.Close()

		topic := cfg.Topic
		if topic == "" {
			topic = sim.DefaultCacheTopic
		}
		workload := sim.NewCapacityWorkload(seed)

		for _, year := range cfg.Periods {
			for _, sector := range sectors {
				for step := 0; step < substeps; step++ {
					frame := workload.Frame(sector, year)
					if err := bus.Publish(topic, frame, "capacity"); err != nil {
						return err
					}
				}
			}
			if err := cache.Consolidate(year); err != nil {
				return err
			}
			logrus.Infof("Period %d consolidated", year)
		}

		logrus.Infof("Run complete in %s", time.Since(startTime))
		return nil
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML simulation configuration")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&outputDir, "output", "", "Output directory (overrides config)")
	runCmd.Flags().Uint64Var(&seed, "seed", 42, "Seed for synthetic capacity generation")
	runCmd.Flags().IntVar(&substeps, "substeps", 2, "Investment sub-steps per sector per period")

	rootCmd.AddCommand(runCmd)
}
