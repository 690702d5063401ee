package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"descry/pkg/engine"
	"descry/pkg/model"
)

// Single runs exactly one engine: the configured default, or any available
// engine when fallback is allowed.
type Single struct{}

func (s *Single) Name() Mode { return ModeSingle }

func (s *Single) Process(ctx context.Context, req *Request) (*model.ProcessingResult, error) {
	if len(req.Engines) == 0 {
		return nil, engine.ErrNoEnginesAvailable
	}

	target := req.Engines[0]
	if req.DefaultEngine != "" {
		found := false
		for _, e := range req.Engines {
			if e.Name() == req.DefaultEngine {
				target = e
				found = true
				break
			}
		}
		if !found {
			if !req.FallbackToAny {
				return nil, fmt.Errorf("%w: %s", engine.ErrEngineUnavailable, req.DefaultEngine)
			}
			slog.Warn("Single: default engine unavailable, falling back", "default", req.DefaultEngine, "fallback", target.Name())
		}
	}

	res := invokeOne(ctx, target, req)
	if engine.IsCancelled(res.Err) {
		return nil, fmt.Errorf("%w: %v", engine.ErrCancelled, res.Err)
	}
	if res.Err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrAllEnginesFailed, res.Err)
	}

	ok := []model.EngineResult{res}
	return assemble(dedupMerge(ok), ok, nil), nil
}
