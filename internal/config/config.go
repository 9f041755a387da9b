package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AGENTSIM_SIM_STEPS.
const EnvPrefix = "AGENTSIM"

// Config is the root configuration struct
type Config struct {
	World  WorldConfig  `mapstructure:"world"`
	Index  IndexConfig  `mapstructure:"index"`
	Sim    SimConfig    `mapstructure:"sim"`
	Output OutputConfig `mapstructure:"output"`
	Rest   RestConfig   `mapstructure:"rest"`
}

// WorldConfig holds the world dimensions and population
type WorldConfig struct {
	Width      float64 `mapstructure:"width"`
	Height     float64 `mapstructure:"height"`
	Agents     int     `mapstructure:"agents"`
	Homes      int     `mapstructure:"homes"`
	Workplaces int     `mapstructure:"workplaces"`
	Schools    int     `mapstructure:"schools"`
}

// IndexConfig tunes the quadtree
type IndexConfig struct {
	LeafCapacity int     `mapstructure:"leafCapacity"`
	MinLeafWidth float64 `mapstructure:"minLeafWidth"`
}

// SimConfig holds the stepping and disease settings
type SimConfig struct {
	Steps             int           `mapstructure:"steps"`
	StepSize          time.Duration `mapstructure:"stepSize"`
	Seed              int64         `mapstructure:"seed"`
	IndexCases        int           `mapstructure:"indexCases"`
	InfectionRadius   float64       `mapstructure:"infectionRadius"`
	ExactRadius       bool          `mapstructure:"exactRadius"`
	FullConsolidation bool          `mapstructure:"fullConsolidation"`
	Interval          time.Duration `mapstructure:"interval"`
}

// OutputConfig names the files written after a run. Empty disables one.
// Grid prints the text grid to stdout after every step.
type OutputConfig struct {
	Grid     bool   `mapstructure:"grid"`
	Store    string `mapstructure:"store"`
	Chart    string `mapstructure:"chart"`
	SVG      string `mapstructure:"svg"`
	Contacts string `mapstructure:"contacts"`
}

// RestConfig holds the inspection API settings
type RestConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("world.width", 40.0)
	v.SetDefault("world.height", 40.0)
	v.SetDefault("world.agents", 480)
	v.SetDefault("world.homes", 120)
	v.SetDefault("world.workplaces", 12)
	v.SetDefault("world.schools", 3)
	v.SetDefault("index.leafCapacity", 4)
	v.SetDefault("index.minLeafWidth", 2.0)
	v.SetDefault("sim.steps", 150)
	v.SetDefault("sim.stepSize", time.Hour)
	v.SetDefault("sim.seed", 0)
	v.SetDefault("sim.indexCases", 1)
	v.SetDefault("sim.infectionRadius", 2.0)
	v.SetDefault("sim.exactRadius", true)
	v.SetDefault("sim.fullConsolidation", false)
	v.SetDefault("sim.interval", 100*time.Millisecond)
	v.SetDefault("output.grid", false)
	v.SetDefault("output.store", "")
	v.SetDefault("output.chart", "")
	v.SetDefault("output.svg", "")
	v.SetDefault("output.contacts", "")
	v.SetDefault("rest.addr", ":8080")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.World.Width <= 0 || c.World.Height <= 0 {
		errs = append(errs, fmt.Errorf("world size %gx%g must be positive", c.World.Width, c.World.Height))
	}
	if c.World.Agents < 0 || c.World.Homes < 0 || c.World.Workplaces < 0 || c.World.Schools < 0 {
		errs = append(errs, errors.New("world counts must not be negative"))
	}
	if c.Index.LeafCapacity < 1 {
		errs = append(errs, fmt.Errorf("index.leafCapacity %d must be at least 1", c.Index.LeafCapacity))
	}
	if c.Index.MinLeafWidth < 0 {
		errs = append(errs, fmt.Errorf("index.minLeafWidth %g must not be negative", c.Index.MinLeafWidth))
	}
	if c.Sim.StepSize <= 0 {
		errs = append(errs, fmt.Errorf("sim.stepSize %s must be positive", c.Sim.StepSize))
	}
	if c.Sim.Steps < 0 || c.Sim.IndexCases < 0 {
		errs = append(errs, errors.New("sim counts must not be negative"))
	}
	if c.Sim.InfectionRadius < 0 {
		errs = append(errs, fmt.Errorf("sim.infectionRadius %g must not be negative", c.Sim.InfectionRadius))
	}
	if c.Sim.Interval < 0 {
		errs = append(errs, fmt.Errorf("sim.interval %s must not be negative", c.Sim.Interval))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
