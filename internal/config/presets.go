package config

import (
	"fmt"
	"maps"
	"slices"

	"github.com/mitchellh/mapstructure"
)

// Presets are partial configs applied over DefaultConfig. Keys are the
// yaml/mapstructure field names.
var Presets = map[string]map[string]any{
	"default": {},
	"narrow": {
		"wall":     2.0,
		"init_pos": 1.0,
	},
	"off-center": {
		"init_pos": 0.5,
		"trials":   500,
	},
	"ballistic": {
		"noise":    false,
		"gamma":    0.0,
		"mass":     1.0,
		"init_vel": 10.0,
		"dt":       0.01,
		"trials":   1,
	},
	"overdamped": {
		"gamma":    1e-7,
		"lambda":   1e-7,
		"duration": 5.0,
	},
	"cold": {
		"temperature": 1.0,
		"duration":    5.0,
	},
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	return slices.Sorted(maps.Keys(Presets))
}

// GetPreset decodes the named preset over the defaults.
func GetPreset(name string) (*Config, error) {
	values, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q", name)
	}
	cfg := DefaultConfig()
	if err := Apply(cfg, values); err != nil {
		return nil, fmt.Errorf("preset %s: %w", name, err)
	}
	return cfg, nil
}

// Apply decodes values onto cfg. Unknown keys are an error.
func Apply(cfg *Config, values map[string]any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      cfg,
		ErrorUnused: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(values)
}
