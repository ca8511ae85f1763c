package optimizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Defaults().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no budget", func(c *Config) { c.Iterations = 0; c.TimeBudget = 0 }, "iterations"},
		{"negative iterations", func(c *Config) { c.Iterations = -1 }, "iterations"},
		{"negative time budget", func(c *Config) { c.TimeBudget = -time.Second }, "time_budget"},
		{"negative exploration", func(c *Config) { c.Exploration = -0.1 }, "exploration"},
		{"unknown strategy", func(c *Config) { c.Strategy = "random" }, "strategy"},
		{"zero top k", func(c *Config) { c.TopK = 0 }, "top_k"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"negative expansion width", func(c *Config) { c.ExpansionWidth = -2 }, "expansion_width"},
		{"unknown evaluation order", func(c *Config) { c.EvaluationOrder = "sideways" }, "evaluation_order"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var ice ErrInvalidConfig
			assert.ErrorAs(t, err, &ice)
			assert.Equal(t, tt.field, ice.Field)
		})
	}
}

func TestConfigTimeBudgetOnly(t *testing.T) {
	cfg := Defaults()
	cfg.Iterations = 0
	cfg.TimeBudget = 100 * time.Millisecond
	assert.NoError(t, cfg.Validate())
}
