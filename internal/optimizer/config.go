package optimizer

import (
	"math"
	"time"
)

// Strategy selects the default (rollout) policy.
type Strategy string

const (
	StrategyUniform Strategy = "uniform"
	StrategyGreedy  Strategy = "greedy"
)

// EvaluationOrder decides whether fixed reductions are taken before or after
// percentage discounts.
type EvaluationOrder string

const (
	FlatFirst    EvaluationOrder = "flat_first"
	PercentFirst EvaluationOrder = "percent_first"
)

// DefaultSeed keeps runs reproducible when no seed is configured.
const DefaultSeed int64 = 20191129

// Config holds the configuration for a planning run.
// It is loaded from the "planner" config section or built from CLI/HTTP options.
type Config struct {
	// Budget: at least one of Iterations and TimeBudget must be set.
	Iterations int           `mapstructure:"iterations" json:"iterations"`
	TimeBudget time.Duration `mapstructure:"time_budget" json:"timeBudget"`

	// UCB exploration constant c
	Exploration float64 `mapstructure:"exploration" json:"exploration"`

	Strategy Strategy `mapstructure:"strategy" json:"strategy" jsonschema:"enum=uniform,enum=greedy"`
	TopK     int      `mapstructure:"top_k" json:"topK"`
	Seed     int64    `mapstructure:"seed" json:"seed"`
	Workers  int      `mapstructure:"workers" json:"workers"`

	// Children created per expansion, 0 expands every untried move at once.
	ExpansionWidth int `mapstructure:"expansion_width" json:"expansionWidth"`

	EvaluationOrder EvaluationOrder `mapstructure:"evaluation_order" json:"evaluationOrder" jsonschema:"enum=flat_first,enum=percent_first"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		Iterations:      2000,
		TimeBudget:      5 * time.Second,
		Exploration:     math.Sqrt2,
		Strategy:        StrategyGreedy,
		TopK:            5,
		Seed:            DefaultSeed,
		Workers:         1,
		ExpansionWidth:  0,
		EvaluationOrder: FlatFirst,
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c Config) Validate() error {
	if c.Iterations < 0 {
		return ErrInvalidConfig{Field: "iterations", Reason: "must be non-negative"}
	}
	if c.TimeBudget < 0 {
		return ErrInvalidConfig{Field: "time_budget", Reason: "must be non-negative"}
	}
	if c.Iterations == 0 && c.TimeBudget == 0 {
		return ErrInvalidConfig{Field: "iterations", Reason: "either iterations or time_budget must be set"}
	}
	if c.Exploration < 0 || math.IsNaN(c.Exploration) || math.IsInf(c.Exploration, 0) {
		return ErrInvalidConfig{Field: "exploration", Reason: "must be a finite non-negative number"}
	}
	switch c.Strategy {
	case StrategyUniform, StrategyGreedy:
	default:
		return ErrInvalidConfig{Field: "strategy", Reason: "must be uniform or greedy"}
	}
	if c.TopK < 1 {
		return ErrInvalidConfig{Field: "top_k", Reason: "must be at least 1"}
	}
	if c.Workers < 1 {
		return ErrInvalidConfig{Field: "workers", Reason: "must be at least 1"}
	}
	if c.ExpansionWidth < 0 {
		return ErrInvalidConfig{Field: "expansion_width", Reason: "must be non-negative"}
	}
	switch c.EvaluationOrder {
	case FlatFirst, PercentFirst:
	default:
		return ErrInvalidConfig{Field: "evaluation_order", Reason: "must be flat_first or percent_first"}
	}
	return nil
}
