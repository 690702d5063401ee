// Package strategy implements the five execution strategies that decide how
// engines are invoked and how their outputs merge into one result.
package strategy

import (
	"context"
	"fmt"
	"time"

	"descry/pkg/config"
	"descry/pkg/engine"
	"descry/pkg/model"
)

// Mode selects an execution strategy.
type Mode string

const (
	ModeSingle     Mode = "single"
	ModeParallel   Mode = "parallel"
	ModeSequential Mode = "sequential"
	ModeEnsemble   Mode = "ensemble"
	ModeAdaptive   Mode = "adaptive"
)

// AllModes lists every known mode.
var AllModes = []Mode{ModeSingle, ModeParallel, ModeSequential, ModeEnsemble, ModeAdaptive}

// ParseMode validates a mode string. Unknown modes are a configuration
// error, raised at startup validation time rather than at call time.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	for _, known := range AllModes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", engine.ErrInvalidMode, s)
}

// Observer receives per-invocation outcomes; the engine registry implements
// it to keep health records current.
type Observer interface {
	RecordOutcome(name string, elapsed time.Duration, descriptions int, err error)
}

// Request carries everything one extraction call needs. The accumulation
// buffers built from it are owned by the call's goroutine tree and never
// shared across calls.
type Request struct {
	Text      string
	ChapterID string

	// Engines are the available engines in registration order.
	Engines []engine.ExtractionEngine
	// Configs holds the per-engine tunables, read-only to strategies.
	Configs map[string]config.EngineConfig
	// Ensemble and Priority parameterize the voter.
	Ensemble config.EnsembleConfig
	Priority config.PriorityConfig

	// DefaultEngine and FallbackToAny steer the single strategy.
	DefaultEngine string
	FallbackToAny bool

	// Observer is optional.
	Observer Observer
}

func (r *Request) timeoutFor(name string) time.Duration {
	if cfg, ok := r.Configs[name]; ok && time.Duration(cfg.Timeout) > 0 {
		return time.Duration(cfg.Timeout)
	}
	return config.DefaultEngineTimeout
}

// Strategy defines one execution flow. Implementations are stateless between
// calls; one cached instance per mode suffices.
type Strategy interface {
	Name() Mode
	Process(ctx context.Context, req *Request) (*model.ProcessingResult, error)
}
