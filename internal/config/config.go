package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/langevin/internal/params"
	"github.com/san-kum/langevin/internal/physics"
)

const (
	DefaultDuration    = 1.0
	DefaultDt          = 1e-3
	DefaultInitPos     = 2.5
	DefaultMass        = 1e-9
	DefaultGamma       = 1e-10
	DefaultTemperature = 300.0
	DefaultWall        = 5.0
	DefaultTrials      = 100
)

// Config is the on-disk form of an ensemble run. Every field can also be
// set from a preset map, hence the mapstructure tags.
type Config struct {
	Duration    float64 `yaml:"duration" mapstructure:"duration" json:"duration"`
	Dt          float64 `yaml:"dt" mapstructure:"dt" json:"dt"`
	InitPos     float64 `yaml:"init_pos" mapstructure:"init_pos" json:"init_pos"`
	InitVel     float64 `yaml:"init_vel" mapstructure:"init_vel" json:"init_vel"`
	Mass        float64 `yaml:"mass" mapstructure:"mass" json:"mass"`
	Gamma       float64 `yaml:"gamma" mapstructure:"gamma" json:"gamma"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature" json:"temperature"`
	// Lambda is the noise scale. Zero means "same as gamma".
	Lambda     float64 `yaml:"lambda" mapstructure:"lambda" json:"lambda"`
	Wall       float64 `yaml:"wall" mapstructure:"wall" json:"wall"`
	Noise      bool    `yaml:"noise" mapstructure:"noise" json:"noise"`
	Units      string  `yaml:"units" mapstructure:"units" json:"units"`
	Integrator string  `yaml:"integrator" mapstructure:"integrator" json:"integrator"`

	Trials  int    `yaml:"trials" mapstructure:"trials" json:"trials"`
	Seed    uint64 `yaml:"seed" mapstructure:"seed" json:"seed"`
	Workers int    `yaml:"workers" mapstructure:"workers" json:"workers"`
	Print   bool   `yaml:"print" mapstructure:"print" json:"print"`
	Save    bool   `yaml:"save" mapstructure:"save" json:"save"`
}

func DefaultConfig() *Config {
	return &Config{
		Duration:    DefaultDuration,
		Dt:          DefaultDt,
		InitPos:     DefaultInitPos,
		Mass:        DefaultMass,
		Gamma:       DefaultGamma,
		Temperature: DefaultTemperature,
		Wall:        DefaultWall,
		Noise:       true,
		Units:       string(physics.Reduced),
		Integrator:  "rk4",
		Trials:      DefaultTrials,
		Workers:     1,
		Print:       true,
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto decodes the file at path over cfg; keys absent from the file
// keep their current values.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	slog.Info("loaded config", slog.String("path", path))
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// NoiseScale returns Lambda, falling back to Gamma when unset.
func (c *Config) NoiseScale() float64 {
	if c.Lambda == 0 {
		return c.Gamma
	}
	return c.Lambda
}

// Physical converts the config into the integrator's parameter record.
func (c *Config) Physical() (params.Physical, error) {
	units, err := physics.ParseUnits(c.Units)
	if err != nil {
		return params.Physical{}, err
	}
	return params.Physical{
		Duration:    c.Duration,
		Dt:          c.Dt,
		InitPos:     c.InitPos,
		InitVel:     c.InitVel,
		Mass:        c.Mass,
		Gamma:       c.Gamma,
		Temperature: c.Temperature,
		Lambda:      c.NoiseScale(),
		WallSize:    c.Wall,
		Noise:       c.Noise,
		Units:       units,
	}, nil
}

// ResolveSeed replaces a zero seed with one derived from the clock and
// returns the seed that will be used.
func (c *Config) ResolveSeed(now time.Time) uint64 {
	if c.Seed == 0 {
		c.Seed = uint64(now.UnixNano())
	}
	return c.Seed
}
