package config

import (
	"context"
	"strconv"
	"time"

	"descry/pkg/store"
)

// Provider defines the interface for accessing unified configuration.
// Values set at runtime (mode switches, weight overrides) are read from the
// persistent store; everything else falls back to the static config.
type Provider interface {
	// Orchestrator
	Mode(ctx context.Context) string
	Budget(ctx context.Context) time.Duration
	DefaultEngine(ctx context.Context) string
	FallbackToAny(ctx context.Context) bool

	// Ensemble
	ConsensusThreshold(ctx context.Context) float64

	// Per-engine
	EngineWeight(ctx context.Context, name string) float64
	EngineEnabled(ctx context.Context, name string) bool
	EngineTimeout(ctx context.Context, name string) time.Duration

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// UnifiedProvider implements Provider by bridging static Config and
// persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

// --- Implementations ---

func (p *UnifiedProvider) Mode(ctx context.Context) string {
	fallback := p.base.Orchestrator.Mode
	if fallback == "" {
		fallback = "adaptive"
	}
	return p.getString(ctx, KeyMode, fallback)
}

func (p *UnifiedProvider) Budget(ctx context.Context) time.Duration {
	if d := time.Duration(p.base.Orchestrator.Budget); d > 0 {
		return d
	}
	return DefaultBudget
}

func (p *UnifiedProvider) DefaultEngine(ctx context.Context) string {
	return p.getString(ctx, KeyDefaultEngine, p.base.Orchestrator.DefaultEngine)
}

func (p *UnifiedProvider) FallbackToAny(ctx context.Context) bool {
	return p.base.Orchestrator.FallbackToAny
}

func (p *UnifiedProvider) ConsensusThreshold(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyConsensusThreshold, p.base.Ensemble.ConsensusThreshold)
}

func (p *UnifiedProvider) EngineWeight(ctx context.Context, name string) float64 {
	fallback := DefaultEngineWeight
	if ec, ok := p.base.Engines[name]; ok && ec.Weight > 0 {
		fallback = ec.Weight
	}
	return p.getFloat64(ctx, EngineWeightKey(name), fallback)
}

func (p *UnifiedProvider) EngineEnabled(ctx context.Context, name string) bool {
	fallback := true
	if ec, ok := p.base.Engines[name]; ok {
		fallback = ec.Enabled
	}
	return p.getBool(ctx, EngineEnabledKey(name), fallback)
}

func (p *UnifiedProvider) EngineTimeout(ctx context.Context, name string) time.Duration {
	fallback := DefaultEngineTimeout
	if ec, ok := p.base.Engines[name]; ok && time.Duration(ec.Timeout) > 0 {
		fallback = time.Duration(ec.Timeout)
	}
	return p.getDuration(ctx, EngineTimeoutKey(name), fallback)
}

// --- Helpers ---

func (p *UnifiedProvider) getString(ctx context.Context, key, fallback string) string {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val
		}
	}
	return fallback
}

func (p *UnifiedProvider) getFloat64(ctx context.Context, key string, fallback float64) float64 {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getBool(ctx context.Context, key string, fallback bool) bool {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val == "true"
		}
	}
	return fallback
}

func (p *UnifiedProvider) getDuration(ctx context.Context, key string, fallback time.Duration) time.Duration {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if dur, err := ParseDuration(val); err == nil {
				return dur
			}
		}
	}
	return fallback
}
