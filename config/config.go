// Package config holds the explicit configuration object passed into the
// agent, memory coordinator, and adapters. There is no ambient settings
// singleton; callers construct a Config once and hand it down.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Consolidation holds the empirically chosen consolidation constants. The
// additive bonuses and the persistence threshold are configuration, not
// inferred weights.
type Consolidation struct {
	// Threshold is the STM message count that triggers consolidation.
	Threshold int `mapstructure:"threshold"`

	// BaseScore is the starting importance for every chunk.
	BaseScore float64 `mapstructure:"base_score"`

	// LongChunkBonus is added when a chunk has more than 3 messages.
	LongChunkBonus float64 `mapstructure:"long_chunk_bonus"`

	// QuestionBonus is added when any message contains a question cue.
	QuestionBonus float64 `mapstructure:"question_bonus"`

	// PersonalBonus is added when any message contains a personal
	// disclosure cue.
	PersonalBonus float64 `mapstructure:"personal_bonus"`

	// DetailBonus is added when the chunk's average message length
	// exceeds 100 characters.
	DetailBonus float64 `mapstructure:"detail_bonus"`

	// PersistenceThreshold is the score a chunk must exceed to be stored.
	PersistenceThreshold float64 `mapstructure:"persistence_threshold"`
}

// Config is the top-level agent configuration.
type Config struct {
	// Model selects the model adapter ("anthropic" in this repo).
	Model string `mapstructure:"model"`

	// ModelName is the concrete model identifier passed to the adapter.
	ModelName string `mapstructure:"model_name"`

	// APIKey authenticates the model adapter.
	APIKey string `mapstructure:"api_key"`

	// Persona selects the behavioral prompt: personal, research, technical.
	Persona string `mapstructure:"persona"`

	// MaxIterations bounds the decide/act loop per user input.
	MaxIterations int `mapstructure:"max_iterations"`

	// MinRespondLength is the shortest respond message accepted verbatim;
	// shorter messages trigger one model call to synthesize a reply.
	MinRespondLength int `mapstructure:"min_respond_length"`

	// STMCapacity bounds the short-term message buffer.
	STMCapacity int `mapstructure:"stm_capacity"`

	// RelevanceFloor is the minimum importance a retrieved memory needs to
	// be injected into assembled context.
	RelevanceFloor float64 `mapstructure:"relevance_floor"`

	// DataDir is where the long-term store keeps its database.
	DataDir string `mapstructure:"data_dir"`

	Consolidation Consolidation `mapstructure:"consolidation"`
}

// Default returns the configuration with every constant at its documented
// default.
func Default() *Config {
	return &Config{
		Model:            "anthropic",
		ModelName:        "claude-sonnet-4-20250514",
		Persona:          "personal",
		MaxIterations:    10,
		MinRespondLength: 10,
		STMCapacity:      20,
		RelevanceFloor:   0.6,
		DataDir:          "data",
		Consolidation: Consolidation{
			Threshold:            10,
			BaseScore:            0.5,
			LongChunkBonus:       0.1,
			QuestionBonus:        0.1,
			PersonalBonus:        0.2,
			DetailBonus:          0.1,
			PersistenceThreshold: 0.5,
		},
	}
}

// Load reads configuration from SAGE_* environment variables and an optional
// sage.yaml in the working directory, layered over Default.
func Load() (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("model", def.Model)
	v.SetDefault("model_name", def.ModelName)
	v.SetDefault("api_key", def.APIKey)
	v.SetDefault("persona", def.Persona)
	v.SetDefault("max_iterations", def.MaxIterations)
	v.SetDefault("min_respond_length", def.MinRespondLength)
	v.SetDefault("stm_capacity", def.STMCapacity)
	v.SetDefault("relevance_floor", def.RelevanceFloor)
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("consolidation.threshold", def.Consolidation.Threshold)
	v.SetDefault("consolidation.base_score", def.Consolidation.BaseScore)
	v.SetDefault("consolidation.long_chunk_bonus", def.Consolidation.LongChunkBonus)
	v.SetDefault("consolidation.question_bonus", def.Consolidation.QuestionBonus)
	v.SetDefault("consolidation.personal_bonus", def.Consolidation.PersonalBonus)
	v.SetDefault("consolidation.detail_bonus", def.Consolidation.DetailBonus)
	v.SetDefault("consolidation.persistence_threshold", def.Consolidation.PersistenceThreshold)

	v.SetEnvPrefix("SAGE")
	// Nested keys use dots internally; env vars spell them with underscores
	// (consolidation.threshold -> SAGE_CONSOLIDATION_THRESHOLD).
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("sage")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
