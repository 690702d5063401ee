// Package orchestrator is the public entry point: it wires the engine
// registry, the configuration provider and the strategy factory into one
// Extract call.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"descry/pkg/cache"
	"descry/pkg/config"
	"descry/pkg/engine"
	"descry/pkg/model"
	"descry/pkg/store"
	"descry/pkg/strategy"
	"descry/pkg/tracker"
)

// Orchestrator coordinates engines, configuration and strategies. It is safe
// for concurrent Extract calls; configuration updates take effect on the
// next call.
type Orchestrator struct {
	registry *engine.Registry
	provider config.Provider
	loader   *config.Loader
	factory  *strategy.Factory
	store    store.StateStore // nil when runtime overrides are not persisted
	tracker  *tracker.Tracker
	cache    cache.Cacher // nil disables result caching

	mu          sync.RWMutex
	initialized bool
	ensemble    config.EnsembleConfig
	memMode     string // runtime mode override when no store is attached
}

// Status is the health snapshot returned by Orchestrator.Status.
type Status struct {
	Initialized bool                           `json:"initialized"`
	Mode        string                         `json:"mode"`
	Budget      time.Duration                  `json:"budget"`
	Engines     map[string]model.EngineStatus  `json:"engines"`
	Stats       map[string]tracker.EngineStats `json:"stats,omitempty"`
}

// New creates an Orchestrator. The store may be nil; runtime overrides then
// live only in memory for the process lifetime.
func New(registry *engine.Registry, provider config.Provider, st store.StateStore) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		provider: provider,
		loader:   config.NewLoader(provider),
		factory:  strategy.NewFactory(provider.AppConfig().Adaptive),
		store:    st,
		tracker:  tracker.New(),
	}
}

// SetCache enables result caching. Pass before the first Extract.
func (o *Orchestrator) SetCache(c cache.Cacher) { o.cache = c }

// outcomeRecorder fans invocation outcomes out to the registry's health
// records and the lifetime counters.
type outcomeRecorder struct {
	registry *engine.Registry
	tracker  *tracker.Tracker
}

func (r *outcomeRecorder) RecordOutcome(name string, elapsed time.Duration, descriptions int, err error) {
	r.registry.RecordOutcome(name, elapsed, descriptions, err)
	if err != nil {
		r.tracker.TrackFailure(name, engine.IsTimeout(err))
		return
	}
	r.tracker.TrackSuccess(name, descriptions == 0)
}

// Initialize resolves and validates the full configuration and primes the
// registry. It must succeed before the first Extract; calling it again
// re-reads the configuration.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	configs, ens, err := o.loader.Load(ctx, o.registry.Names())
	if err != nil {
		return err
	}

	mode := o.provider.Mode(ctx)
	if _, err := strategy.ParseMode(mode); err != nil {
		return err
	}
	// Startup validation: every mode must be constructible.
	for _, m := range strategy.AllModes {
		if _, err := o.factory.Get(m); err != nil {
			return err
		}
	}

	o.registry.SetConfigs(configs)

	o.mu.Lock()
	o.ensemble = ens
	o.initialized = true
	o.mu.Unlock()

	slog.Info("Orchestrator: initialized",
		"mode", mode,
		"engines", len(configs),
		"consensus_threshold", ens.ConsensusThreshold,
		"budget", o.provider.Budget(ctx))
	return nil
}

// Extract processes one chapter text. modeOverride selects a strategy for
// this call only; empty means the configured mode. The whole call is bounded
// by the configured processing budget.
func (o *Orchestrator) Extract(ctx context.Context, text, chapterID, modeOverride string) (*model.ProcessingResult, error) {
	o.mu.RLock()
	initialized := o.initialized
	ens := o.ensemble
	o.mu.RUnlock()
	if !initialized {
		return nil, errors.New("orchestrator: not initialized")
	}

	if strings.TrimSpace(text) == "" {
		return nil, errors.New("orchestrator: empty chapter text")
	}

	modeStr := modeOverride
	if modeStr == "" {
		modeStr = o.currentMode(ctx)
	}
	mode, err := strategy.ParseMode(modeStr)
	if err != nil {
		return nil, err
	}
	strat, err := o.factory.Get(mode)
	if err != nil {
		return nil, err
	}

	var cacheKey string
	if o.cache != nil {
		cacheKey = cache.Key(string(mode), text)
		if data, ok := o.cache.GetCache(ctx, cacheKey); ok {
			var cached model.ProcessingResult
			if err := json.Unmarshal(data, &cached); err == nil {
				slog.Info("Orchestrator: cache hit", "chapter", chapterID, "mode", mode)
				if cached.QualityMetrics == nil {
					cached.QualityMetrics = map[string]float64{}
				}
				cached.QualityMetrics["cache_hit"] = 1
				return &cached, nil
			}
			slog.Warn("Orchestrator: discarding undecodable cache entry", "error", err)
		}
	}

	engines := o.registry.Available()
	if len(engines) == 0 {
		return nil, engine.ErrNoEnginesAvailable
	}

	// Current per-engine config, reflecting runtime updates since Initialize.
	configs := make(map[string]config.EngineConfig, len(engines))
	weights := make(map[string]float64, len(engines))
	for _, e := range engines {
		cfg := o.registry.Config(e.Name())
		configs[e.Name()] = cfg
		weights[e.Name()] = cfg.Weight
	}
	ens.EngineWeights = weights
	// Store-backed threshold overrides apply per call, not just at
	// Initialize. Out-of-range values keep the validated one.
	if o.store != nil {
		if th := o.provider.ConsensusThreshold(ctx); th > 0 && th <= 1 {
			ens.ConsensusThreshold = th
		}
	}

	budget := o.provider.Budget(ctx)
	callCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	req := &strategy.Request{
		Text:          text,
		ChapterID:     chapterID,
		Engines:       engines,
		Configs:       configs,
		Ensemble:      ens,
		Priority:      o.provider.AppConfig().Priority,
		DefaultEngine: o.provider.DefaultEngine(ctx),
		FallbackToAny: o.provider.FallbackToAny(ctx),
		Observer:      &outcomeRecorder{registry: o.registry, tracker: o.tracker},
	}

	requestID := uuid.NewString()
	slog.Info("Orchestrator: extraction started",
		"request_id", requestID, "chapter", chapterID, "mode", mode, "engines", len(engines))

	start := time.Now()
	res, err := strat.Process(callCtx, req)
	elapsed := time.Since(start)

	if err != nil {
		// Cancellation hands back whatever was gathered before the caller
		// walked away, alongside the error.
		if res != nil {
			res.RequestID = requestID
			res.ProcessingTime = elapsed
			slog.Warn("Orchestrator: extraction cancelled, returning partial result",
				"request_id", requestID, "chapter", chapterID, "elapsed", elapsed,
				"descriptions", len(res.Descriptions), "error", err)
			return res, err
		}
		slog.Warn("Orchestrator: extraction failed",
			"request_id", requestID, "chapter", chapterID, "elapsed", elapsed, "error", err)
		return nil, err
	}

	res.RequestID = requestID
	res.ProcessingTime = elapsed
	if len(res.Descriptions) == 0 {
		res.Recommendations = append(res.Recommendations,
			"no descriptions survived extraction; the chapter may lack descriptive prose or the consensus threshold may be too strict")
	}

	if o.cache != nil {
		if data, err := json.Marshal(res); err == nil {
			if err := o.cache.SetCache(ctx, cacheKey, data); err != nil {
				slog.Warn("Orchestrator: failed to cache result", "error", err)
			}
		}
	}

	slog.Info("Orchestrator: extraction completed",
		"request_id", requestID, "chapter", chapterID, "elapsed", elapsed,
		"descriptions", len(res.Descriptions), "engines_used", len(res.EnginesUsed))
	return res, nil
}

// Status reports the orchestrator and per-engine health.
func (o *Orchestrator) Status(ctx context.Context) Status {
	o.mu.RLock()
	initialized := o.initialized
	o.mu.RUnlock()

	return Status{
		Initialized: initialized,
		Mode:        o.currentMode(ctx),
		Budget:      o.provider.Budget(ctx),
		Engines:     o.registry.Status(),
		Stats:       o.tracker.Snapshot(),
	}
}

// currentMode resolves the effective processing mode: the in-memory
// override applies only when no store backs the provider, otherwise the
// provider reads the persisted value itself.
func (o *Orchestrator) currentMode(ctx context.Context) string {
	if o.store == nil {
		o.mu.RLock()
		mode := o.memMode
		o.mu.RUnlock()
		if mode != "" {
			return mode
		}
	}
	return o.provider.Mode(ctx)
}

// UpdateMode switches the processing mode at runtime. With a store attached
// the choice survives restarts; without one it lasts for the process
// lifetime.
func (o *Orchestrator) UpdateMode(ctx context.Context, mode string) error {
	if _, err := strategy.ParseMode(mode); err != nil {
		return err
	}
	if o.store != nil {
		if err := o.store.SetState(ctx, config.KeyMode, mode); err != nil {
			return fmt.Errorf("persist mode: %w", err)
		}
	} else {
		o.mu.Lock()
		o.memMode = mode
		o.mu.Unlock()
	}
	slog.Info("Orchestrator: mode updated", "mode", mode)
	return nil
}

// UpdateConsensusThreshold retunes the ensemble acceptance bar at runtime.
// Takes effect on the next Extract; persisted when a store is attached.
func (o *Orchestrator) UpdateConsensusThreshold(ctx context.Context, threshold float64) error {
	if threshold <= 0 || threshold > 1 {
		return fmt.Errorf("%w: consensus threshold %v outside (0,1]", config.ErrConfigValidation, threshold)
	}

	o.mu.Lock()
	o.ensemble.ConsensusThreshold = threshold
	o.mu.Unlock()

	if o.store != nil {
		if err := o.store.SetState(ctx, config.KeyConsensusThreshold,
			strconv.FormatFloat(threshold, 'f', -1, 64)); err != nil {
			return fmt.Errorf("persist consensus threshold: %w", err)
		}
	}
	slog.Info("Orchestrator: consensus threshold updated", "threshold", threshold)
	return nil
}

// UpdateEngineConfig reconfigures one engine at runtime. Malformed values are
// replaced with defaults, matching initialization behavior. The engine must
// be registered.
func (o *Orchestrator) UpdateEngineConfig(ctx context.Context, name string, cfg config.EngineConfig) error {
	if _, ok := o.registry.Get(name); !ok {
		return fmt.Errorf("unknown engine %q", name)
	}

	if cfg.Weight <= 0 {
		slog.Warn("Orchestrator: invalid engine weight, using default",
			"engine", name, "weight", cfg.Weight, "default", config.DefaultEngineWeight)
		cfg.Weight = config.DefaultEngineWeight
	}
	if time.Duration(cfg.Timeout) <= 0 {
		slog.Warn("Orchestrator: invalid engine timeout, using default",
			"engine", name, "timeout", time.Duration(cfg.Timeout), "default", config.DefaultEngineTimeout)
		cfg.Timeout = config.Duration(config.DefaultEngineTimeout)
	}

	o.registry.UpdateConfig(name, cfg)

	if o.store != nil {
		updates := map[string]string{
			config.EngineEnabledKey(name): strconv.FormatBool(cfg.Enabled),
			config.EngineWeightKey(name):  strconv.FormatFloat(cfg.Weight, 'f', -1, 64),
			config.EngineTimeoutKey(name): time.Duration(cfg.Timeout).String(),
		}
		for key, val := range updates {
			if err := o.store.SetState(ctx, key, val); err != nil {
				return fmt.Errorf("persist engine config: %w", err)
			}
		}
	}
	return nil
}
