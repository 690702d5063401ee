package strategy

import (
	"sync"

	"descry/pkg/analyzer"
	"descry/pkg/config"
)

// Factory hands out strategy instances, one cached singleton per mode.
// Strategies are stateless, so sharing an instance across concurrent calls
// is safe.
type Factory struct {
	mu       sync.Mutex
	cache    map[Mode]Strategy
	analyzer *analyzer.Analyzer
}

// NewFactory creates a Factory. The adaptive thresholds parameterize the
// text analyzer behind the adaptive strategy.
func NewFactory(adaptive config.AdaptiveConfig) *Factory {
	return &Factory{
		cache:    make(map[Mode]Strategy),
		analyzer: analyzer.New(adaptive),
	}
}

// Get returns the strategy for a mode, constructing it on first use.
// Unknown modes fail with ErrInvalidMode.
func (f *Factory) Get(mode Mode) (Strategy, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.cache[mode]; ok {
		return s, nil
	}

	var s Strategy
	switch mode {
	case ModeSingle:
		s = &Single{}
	case ModeParallel:
		s = &Parallel{}
	case ModeSequential:
		s = &Sequential{}
	case ModeEnsemble:
		s = &Ensemble{}
	case ModeAdaptive:
		s = &Adaptive{an: f.analyzer, pick: f.Get}
	}
	f.cache[mode] = s
	return s, nil
}
