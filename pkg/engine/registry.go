package engine

import (
	"log/slog"
	"sync"
	"time"

	"descry/pkg/config"
	"descry/pkg/model"
)

// Registry owns engine instances, their runtime configuration and health
// records. Reads dominate; config updates are the only mutation and are
// guarded by the lock.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]ExtractionEngine
	order   []string // registration order, for deterministic iteration and tie-breaks
	configs map[string]config.EngineConfig
	health  map[string]*healthRecord
}

type healthRecord struct {
	lastError   string
	lastLatency time.Duration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]ExtractionEngine),
		configs: make(map[string]config.EngineConfig),
		health:  make(map[string]*healthRecord),
	}
}

// Register adds an engine. Registration is idempotent by name: the last
// registration wins, with a warning.
func (r *Registry) Register(e ExtractionEngine) {
	name := e.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[name]; exists {
		slog.Warn("Registry: engine re-registered, replacing previous instance", "engine", name)
	} else {
		r.order = append(r.order, name)
	}
	r.engines[name] = e
	if _, ok := r.health[name]; !ok {
		r.health[name] = &healthRecord{}
	}
}

// Get returns the engine registered under name.
func (r *Registry) Get(name string) (ExtractionEngine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	return e, ok
}

// Names returns all registered engine names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Available returns the engines that are enabled and pass their health check,
// in registration order. Health is probed fresh on every call; it is never
// cached, since an engine's backing resources can vanish between calls.
func (r *Registry) Available() []ExtractionEngine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ExtractionEngine
	for _, name := range r.order {
		e := r.engines[name]
		if cfg, ok := r.configs[name]; ok && !cfg.Enabled {
			continue
		}
		if !e.IsAvailable() {
			continue
		}
		out = append(out, e)
	}
	return out
}

// SetConfigs replaces the full configuration set, typically at initialization.
func (r *Registry) SetConfigs(configs map[string]config.EngineConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = make(map[string]config.EngineConfig, len(configs))
	for name, cfg := range configs {
		r.configs[name] = cfg
	}
}

// UpdateConfig reconfigures a single engine at runtime without restart.
func (r *Registry) UpdateConfig(name string, cfg config.EngineConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[name] = cfg
	slog.Info("Registry: engine reconfigured", "engine", name, "enabled", cfg.Enabled, "weight", cfg.Weight)
}

// Config returns the current configuration for an engine. Engines without an
// explicit entry get defaults.
func (r *Registry) Config(name string) config.EngineConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cfg, ok := r.configs[name]; ok {
		return cfg
	}
	return config.EngineConfig{
		Enabled: true,
		Weight:  config.DefaultEngineWeight,
		Timeout: config.Duration(config.DefaultEngineTimeout),
	}
}

// RecordOutcome stores the latest latency and error for an engine, surfaced
// through Status.
func (r *Registry) RecordOutcome(name string, elapsed time.Duration, descriptions int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.health[name]
	if !ok {
		rec = &healthRecord{}
		r.health[name] = rec
	}
	rec.lastLatency = elapsed
	if err != nil {
		rec.lastError = err.Error()
	} else {
		rec.lastError = ""
	}
}

// Status reports every registered engine for external health monitoring.
func (r *Registry) Status() map[string]model.EngineStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]model.EngineStatus, len(r.order))
	for _, name := range r.order {
		e := r.engines[name]
		cfg, hasCfg := r.configs[name]
		if !hasCfg {
			cfg = config.EngineConfig{Enabled: true, Weight: config.DefaultEngineWeight}
		}
		st := model.EngineStatus{
			Name:      name,
			Available: e.IsAvailable(),
			Enabled:   cfg.Enabled,
			Weight:    cfg.Weight,
		}
		if rec, ok := r.health[name]; ok {
			st.LastError = rec.lastError
			st.LastLatency = rec.lastLatency
		}
		out[name] = st
	}
	return out
}
