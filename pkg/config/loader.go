package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrConfigValidation marks malformed configuration that has no safe default,
// e.g. every engine disabled. Malformed values with a safe default are
// substituted and logged instead.
var ErrConfigValidation = errors.New("config validation failed")

// Loader resolves the per-engine and ensemble configuration from the settings
// provider, applying validated defaults. It runs at every orchestrator
// initialization, so it must be resilient: a malformed value is logged and
// replaced with its default rather than failing the whole load.
type Loader struct {
	provider Provider
}

// NewLoader creates a Loader on top of a settings provider.
func NewLoader(p Provider) *Loader {
	return &Loader{provider: p}
}

// Load resolves the configuration for the given engine names.
// Engine names come from the registry: configuration may exist for engines
// that are not registered, and registered engines may have no explicit
// configuration (they get defaults).
func (l *Loader) Load(ctx context.Context, engineNames []string) (map[string]EngineConfig, EnsembleConfig, error) {
	base := l.provider.AppConfig()

	engines := make(map[string]EngineConfig, len(engineNames))
	weights := make(map[string]float64, len(engineNames))
	anyEnabled := false

	for _, name := range engineNames {
		ec := EngineConfig{
			Enabled: l.provider.EngineEnabled(ctx, name),
			Weight:  l.provider.EngineWeight(ctx, name),
			Timeout: Duration(l.provider.EngineTimeout(ctx, name)),
		}
		if bc, ok := base.Engines[name]; ok {
			ec.Params = bc.Params
		}

		if ec.Weight <= 0 {
			slog.Warn("Config: invalid engine weight, using default",
				"engine", name, "weight", ec.Weight, "default", DefaultEngineWeight)
			ec.Weight = DefaultEngineWeight
		}
		if time.Duration(ec.Timeout) <= 0 {
			slog.Warn("Config: invalid engine timeout, using default",
				"engine", name, "timeout", time.Duration(ec.Timeout), "default", DefaultEngineTimeout)
			ec.Timeout = Duration(DefaultEngineTimeout)
		}

		engines[name] = ec
		weights[name] = ec.Weight
		if ec.Enabled {
			anyEnabled = true
		}
	}

	if len(engineNames) == 0 {
		return nil, EnsembleConfig{}, fmt.Errorf("%w: no engines configured", ErrConfigValidation)
	}
	if !anyEnabled {
		return nil, EnsembleConfig{}, fmt.Errorf("%w: every engine is disabled", ErrConfigValidation)
	}

	ens := EnsembleConfig{
		ConsensusThreshold: l.provider.ConsensusThreshold(ctx),
		OffsetWindow:       base.Ensemble.OffsetWindow,
		SimilarityFloor:    base.Ensemble.SimilarityFloor,
		EngineWeights:      weights,
	}

	if ens.ConsensusThreshold <= 0 || ens.ConsensusThreshold > 1 {
		slog.Warn("Config: consensus threshold out of range, using default",
			"threshold", ens.ConsensusThreshold, "default", DefaultConsensusThreshold)
		ens.ConsensusThreshold = DefaultConsensusThreshold
	}
	if ens.OffsetWindow <= 0 {
		slog.Warn("Config: offset window out of range, using default",
			"window", ens.OffsetWindow, "default", DefaultOffsetWindow)
		ens.OffsetWindow = DefaultOffsetWindow
	}
	if ens.SimilarityFloor <= 0 || ens.SimilarityFloor > 1 {
		slog.Warn("Config: similarity floor out of range, using default",
			"floor", ens.SimilarityFloor, "default", DefaultSimilarityFloor)
		ens.SimilarityFloor = DefaultSimilarityFloor
	}

	return engines, ens, nil
}
