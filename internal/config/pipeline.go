package config

import (
	"fmt"
	"math"
	"time"

	"github.com/Veraticus/mosaic-money/internal/common"
	"github.com/Veraticus/mosaic-money/internal/engine"
	"github.com/Veraticus/mosaic-money/internal/fallback"
	"github.com/Veraticus/mosaic-money/internal/semantic"
	"github.com/spf13/viper"
)

// DefaultDatabasePath is used when database.path is unset.
const DefaultDatabasePath = "$HOME/.local/share/mosaic/mosaic.db"

// PipelineConfig holds every tunable of the classification pipeline.
type PipelineConfig struct {
	DatabasePath string

	SemanticMinScore      float64
	SemanticMaxCandidates int

	FallbackEnabled       bool
	FallbackTimeout       time.Duration
	FallbackMinConfidence float64
	FallbackMaxProposals  int
	AgentCommand          string
	AgentArgs             []string

	RoutingEnabled   bool
	LaneRegistryPath string

	ReadinessEnabled          bool
	ReadinessMinSubcategories int
	ReadinessMinFillRate      float64

	Parallelism int
}

// SetDefaults registers the pipeline defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("semantic.min_score", semantic.DefaultMinScore)
	v.SetDefault("semantic.max_candidates", semantic.DefaultMaxCandidates)

	v.SetDefault("fallback.enabled", false)
	v.SetDefault("fallback.timeout", fallback.DefaultTimeout)
	v.SetDefault("fallback.min_confidence", fallback.DefaultMinConfidence)
	v.SetDefault("fallback.max_proposals", fallback.DefaultMaxProposals)
	v.SetDefault("fallback.agent.command", "")
	v.SetDefault("fallback.agent.args", []string{})

	v.SetDefault("routing.enabled", false)
	v.SetDefault("routing.registry_path", "")

	v.SetDefault("readiness.enabled", false)
	v.SetDefault("readiness.min_subcategories", 10)
	v.SetDefault("readiness.min_fill_rate", 0.5)

	v.SetDefault("classification.parallelism", engine.DefaultParallelism)
}

// LoadPipeline reads and validates the pipeline configuration from v.
func LoadPipeline(v *viper.Viper) (*PipelineConfig, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: viper instance", common.ErrMissingConfig)
	}
	SetDefaults(v)

	cfg := &PipelineConfig{
		DatabasePath: ExpandPath(v.GetString("database.path")),

		SemanticMinScore:      v.GetFloat64("semantic.min_score"),
		SemanticMaxCandidates: v.GetInt("semantic.max_candidates"),

		FallbackEnabled:       v.GetBool("fallback.enabled"),
		FallbackTimeout:       v.GetDuration("fallback.timeout"),
		FallbackMinConfidence: v.GetFloat64("fallback.min_confidence"),
		FallbackMaxProposals:  v.GetInt("fallback.max_proposals"),
		AgentCommand:          ExpandPath(v.GetString("fallback.agent.command")),
		AgentArgs:             v.GetStringSlice("fallback.agent.args"),

		RoutingEnabled:   v.GetBool("routing.enabled"),
		LaneRegistryPath: ExpandPath(v.GetString("routing.registry_path")),

		ReadinessEnabled:          v.GetBool("readiness.enabled"),
		ReadinessMinSubcategories: v.GetInt("readiness.min_subcategories"),
		ReadinessMinFillRate:      v.GetFloat64("readiness.min_fill_rate"),

		Parallelism: v.GetInt("classification.parallelism"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *PipelineConfig) Validate() error {
	switch {
	case c.DatabasePath == "":
		return invalid("database.path must be set")
	case !inUnitRange(c.SemanticMinScore) || c.SemanticMinScore == 0:
		return invalid("semantic.min_score must be in (0, 1], got %v", c.SemanticMinScore)
	case c.SemanticMaxCandidates < 1:
		return invalid("semantic.max_candidates must be at least 1, got %d", c.SemanticMaxCandidates)
	case c.FallbackTimeout < fallback.MinTimeout || c.FallbackTimeout > fallback.MaxTimeout:
		return invalid("fallback.timeout must be between %s and %s, got %s",
			fallback.MinTimeout, fallback.MaxTimeout, c.FallbackTimeout)
	case !inUnitRange(c.FallbackMinConfidence) || c.FallbackMinConfidence == 0:
		return invalid("fallback.min_confidence must be in (0, 1], got %v", c.FallbackMinConfidence)
	case c.FallbackMaxProposals < 1:
		return invalid("fallback.max_proposals must be at least 1, got %d", c.FallbackMaxProposals)
	case c.FallbackEnabled && c.AgentCommand == "":
		return invalid("fallback.agent.command is required when fallback is enabled")
	case c.ReadinessMinSubcategories < 0:
		return invalid("readiness.min_subcategories cannot be negative, got %d", c.ReadinessMinSubcategories)
	case !inUnitRange(c.ReadinessMinFillRate):
		return invalid("readiness.min_fill_rate must be in [0, 1], got %v", c.ReadinessMinFillRate)
	case c.Parallelism < 1:
		return invalid("classification.parallelism must be at least 1, got %d", c.Parallelism)
	}
	return nil
}

// Semantic returns the retriever configuration.
func (c *PipelineConfig) Semantic() semantic.Config {
	return semantic.Config{
		MinScore:      c.SemanticMinScore,
		MaxCandidates: c.SemanticMaxCandidates,
	}
}

// Fallback returns the fallback service configuration.
func (c *PipelineConfig) Fallback() fallback.Config {
	return fallback.Config{
		Enabled:       c.FallbackEnabled,
		Timeout:       c.FallbackTimeout,
		MinConfidence: c.FallbackMinConfidence,
		MaxProposals:  c.FallbackMaxProposals,
	}
}

func inUnitRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrInvalidConfig, fmt.Sprintf(format, args...))
}
