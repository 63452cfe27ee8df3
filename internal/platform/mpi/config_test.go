package mpi

import (
	"errors"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Weights.Total() != 100 {
		t.Errorf("expected weights to total 100, got %d", cfg.Weights.Total())
	}
}

func TestConfig_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"weights not 100", func(c *Config) { c.Weights.Gender = 10 }},
		{"negative weight", func(c *Config) { c.Weights.Gender = -5; c.Weights.FirstName = 35 }},
		{"unordered thresholds", func(c *Config) { c.Thresholds.Probable = 96 }},
		{"zero candidate limit", func(c *Config) { c.CandidateLimit = 0 }},
		{"candidate limit above cap", func(c *Config) { c.CandidateLimit = 50 }},
		{"duplicate threshold above 100", func(c *Config) { c.DuplicateThreshold = 101 }},
		{"no phone suffix", func(c *Config) { c.Phone.SuffixDigits = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
