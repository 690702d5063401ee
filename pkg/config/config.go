package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Log          LogConfig               `yaml:"log"`
	DB           DBConfig                `yaml:"db"`
	Orchestrator OrchestratorConfig      `yaml:"orchestrator"`
	Engines      map[string]EngineConfig `yaml:"engines"`
	Ensemble     EnsembleConfig          `yaml:"ensemble"`
	Adaptive     AdaptiveConfig          `yaml:"adaptive"`
	Priority     PriorityConfig          `yaml:"priority"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// OrchestratorConfig holds top-level extraction settings.
type OrchestratorConfig struct {
	// Mode is the default processing mode: single, parallel, sequential,
	// ensemble or adaptive.
	Mode string `yaml:"mode"`
	// Budget is the overall wall-clock limit for one Extract call.
	Budget Duration `yaml:"budget"`
	// DefaultEngine is the engine the single strategy prefers.
	DefaultEngine string `yaml:"default_engine"`
	// FallbackToAny lets the single strategy pick any available engine
	// when the default is down.
	FallbackToAny bool `yaml:"fallback_to_any"`
	// CacheResults persists extraction results keyed by chapter content and
	// mode. Delete the database to invalidate.
	CacheResults bool `yaml:"cache_results"`
}

// EngineConfig holds per-engine tunables. Read-only to strategies.
type EngineConfig struct {
	Enabled bool              `yaml:"enabled"`
	Weight  float64           `yaml:"weight"`
	Timeout Duration          `yaml:"timeout"`
	Params  map[string]string `yaml:"params,omitempty"`
}

// EnsembleConfig holds the voting parameters.
type EnsembleConfig struct {
	// ConsensusThreshold is the minimum fraction of available engine weight
	// that must agree on a span before it is accepted.
	ConsensusThreshold float64 `yaml:"consensus_threshold"`
	// OffsetWindow is the character-offset window within which two spans of
	// the same type may cluster.
	OffsetWindow int `yaml:"offset_window"`
	// SimilarityFloor is the minimum token-overlap ratio for clustering.
	SimilarityFloor float64 `yaml:"similarity_floor"`

	// EngineWeights is assembled by the loader from the engine configs.
	// It is not read from YAML directly.
	EngineWeights map[string]float64 `yaml:"-"`
}

// AdaptiveConfig holds the text-profile routing thresholds.
// Longer/more complex texts favor ensemble; shorter/simpler favor
// single/parallel; the mid-range runs sequential.
type AdaptiveConfig struct {
	ShortMaxRunes  int     `yaml:"short_max_runes"`
	LongMinRunes   int     `yaml:"long_min_runes"`
	ComplexMin     float64 `yaml:"complex_min"`
	DialogueWeight float64 `yaml:"dialogue_weight"`
}

// PriorityConfig holds the priority-score composition weights.
type PriorityConfig struct {
	// TypeWeights boost certain description types; location and character
	// default above 1.0 as they are most useful downstream.
	TypeWeights map[string]float64 `yaml:"type_weights"`
	// ConfidenceWeight and ConsensusWeight balance the two score factors.
	ConfidenceWeight float64 `yaml:"confidence_weight"`
	ConsensusWeight  float64 `yaml:"consensus_weight"`
}

// Default tunables. Every numeric parameter the loader validates falls back
// to one of these.
const (
	DefaultConsensusThreshold = 0.6
	DefaultEngineWeight       = 1.0
	DefaultEngineTimeout      = 5 * time.Second
	DefaultOffsetWindow       = 40
	DefaultSimilarityFloor    = 0.5
	DefaultBudget             = 15 * time.Second
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Path:  "./logs/descry.log",
			Level: "INFO",
		},
		DB: DBConfig{
			Path: "./data/descry.db",
		},
		Orchestrator: OrchestratorConfig{
			Mode:          "adaptive",
			Budget:        Duration(DefaultBudget),
			DefaultEngine: "lexicon",
			FallbackToAny: true,
			CacheResults:  false,
		},
		Engines: map[string]EngineConfig{
			"lexicon": {
				Enabled: true,
				Weight:  1.0,
				Timeout: Duration(DefaultEngineTimeout),
			},
			"gemini": {
				Enabled: true,
				Weight:  1.2, // tuned for precision
				Timeout: Duration(DefaultEngineTimeout),
			},
		},
		Ensemble: EnsembleConfig{
			ConsensusThreshold: DefaultConsensusThreshold,
			OffsetWindow:       DefaultOffsetWindow,
			SimilarityFloor:    DefaultSimilarityFloor,
		},
		Adaptive: AdaptiveConfig{
			ShortMaxRunes:  1200,
			LongMinRunes:   4000,
			ComplexMin:     40,
			DialogueWeight: 0.5,
		},
		Priority: PriorityConfig{
			TypeWeights: map[string]float64{
				"location":   1.2,
				"character":  1.1,
				"atmosphere": 1.0,
				"object":     0.9,
				"action":     0.9,
			},
			ConfidenceWeight: 0.7,
			ConsensusWeight:  0.3,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it is created with default values.
// If the file exists, defaults are merged with existing values but NOT saved
// back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		return cfg, nil
	}

	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Descry Configuration
# --------------------
# Duration units: ns, us, ms, s, m, h, d (day), w (week)
# Modes: single, parallel, sequential, ensemble, adaptive

`)
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
