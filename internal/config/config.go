package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable parameters for the knowledge memory.
// Threshold values are policy, not correctness: they ship with the
// defaults below and can be overridden from a YAML file.
type Config struct {
	// DedupThreshold is the concept-overlap ratio at or above which an
	// ingested fact merges into an existing same-topic entry.
	DedupThreshold float64 `yaml:"dedup_threshold"`

	// LinkThreshold is the overlap ratio above which two entries get a
	// connection.
	LinkThreshold float64 `yaml:"link_threshold"`

	// MergeThreshold is the overlap ratio at or above which
	// consolidation merges two same-topic entries. Must be >=
	// DedupThreshold so consolidation is stricter than ingest.
	MergeThreshold float64 `yaml:"merge_threshold"`

	// DecayFactor multiplies every connection weight on each
	// consolidation run. Must be in (0, 1).
	DecayFactor float64 `yaml:"decay_factor"`

	// MinConnectionWeight is the weight below which a decayed
	// connection is removed.
	MinConnectionWeight float64 `yaml:"min_connection_weight"`

	// StoreCapacity is the entry count consolidation evicts down to.
	StoreCapacity int `yaml:"store_capacity"`

	// ProtectedConfidence marks the sole remaining entry of a topic as
	// eviction-exempt when its confidence is at or above this value.
	ProtectedConfidence float64 `yaml:"protected_confidence"`

	// RecencyHalfLife controls the recency weight used by ranking and
	// eviction: weight = 0.5^(age/RecencyHalfLife).
	RecencyHalfLife Duration `yaml:"recency_half_life"`
}

// Duration wraps time.Duration so YAML values can use Go duration
// syntax ("168h", "30m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the documented default configuration.
func Default() *Config {
	return &Config{
		DedupThreshold:      0.5,
		LinkThreshold:       0.25,
		MergeThreshold:      0.6,
		DecayFactor:         0.9,
		MinConnectionWeight: 0.05,
		StoreCapacity:       1000,
		ProtectedConfidence: 0.8,
		RecencyHalfLife:     Duration(168 * time.Hour),
	}
}

// Load reads a YAML config file, applying defaults for any field the
// file leaves unset. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants between options.
func (c *Config) Validate() error {
	inUnit := func(name string, v float64) error {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %g", name, v)
		}
		return nil
	}
	if err := inUnit("dedup_threshold", c.DedupThreshold); err != nil {
		return err
	}
	if err := inUnit("link_threshold", c.LinkThreshold); err != nil {
		return err
	}
	if err := inUnit("merge_threshold", c.MergeThreshold); err != nil {
		return err
	}
	if err := inUnit("min_connection_weight", c.MinConnectionWeight); err != nil {
		return err
	}
	if err := inUnit("protected_confidence", c.ProtectedConfidence); err != nil {
		return err
	}
	if c.MergeThreshold < c.DedupThreshold {
		return fmt.Errorf("merge_threshold (%g) must be >= dedup_threshold (%g)",
			c.MergeThreshold, c.DedupThreshold)
	}
	if c.DecayFactor <= 0 || c.DecayFactor >= 1 {
		return fmt.Errorf("decay_factor must be in (0,1), got %g", c.DecayFactor)
	}
	if c.StoreCapacity <= 0 {
		return fmt.Errorf("store_capacity must be positive, got %d", c.StoreCapacity)
	}
	if c.RecencyHalfLife <= 0 {
		return fmt.Errorf("recency_half_life must be positive, got %s", time.Duration(c.RecencyHalfLife))
	}
	return nil
}
