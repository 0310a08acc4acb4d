package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file failed: %v", err)
	}
	want := Default()
	if *cfg != *want {
		t.Errorf("missing file config = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	yaml := `
dedup_threshold: 0.4
merge_threshold: 0.7
decay_factor: 0.8
store_capacity: 50
recency_half_life: 24h
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DedupThreshold != 0.4 {
		t.Errorf("dedup_threshold = %g, want 0.4", cfg.DedupThreshold)
	}
	if cfg.MergeThreshold != 0.7 {
		t.Errorf("merge_threshold = %g, want 0.7", cfg.MergeThreshold)
	}
	if cfg.DecayFactor != 0.8 {
		t.Errorf("decay_factor = %g, want 0.8", cfg.DecayFactor)
	}
	if cfg.StoreCapacity != 50 {
		t.Errorf("store_capacity = %d, want 50", cfg.StoreCapacity)
	}
	if time.Duration(cfg.RecencyHalfLife) != 24*time.Hour {
		t.Errorf("recency_half_life = %s, want 24h", time.Duration(cfg.RecencyHalfLife))
	}
	// Untouched fields keep their defaults.
	if cfg.LinkThreshold != Default().LinkThreshold {
		t.Errorf("link_threshold = %g, want default", cfg.LinkThreshold)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	if err := os.WriteFile(path, []byte("recency_half_life: fortnight\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"merge below dedup", func(c *Config) { c.MergeThreshold = 0.3; c.DedupThreshold = 0.5 }},
		{"zero decay", func(c *Config) { c.DecayFactor = 0 }},
		{"decay of one", func(c *Config) { c.DecayFactor = 1 }},
		{"negative dedup", func(c *Config) { c.DedupThreshold = -0.1 }},
		{"link above one", func(c *Config) { c.LinkThreshold = 1.5 }},
		{"zero capacity", func(c *Config) { c.StoreCapacity = 0 }},
		{"negative capacity", func(c *Config) { c.StoreCapacity = -1 }},
		{"zero half life", func(c *Config) { c.RecencyHalfLife = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
