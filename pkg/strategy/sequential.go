package strategy

import (
	"context"
	"errors"
	"fmt"

	"descry/pkg/engine"
	"descry/pkg/model"
)

// Sequential runs engines one at a time in registration order. It trades
// latency for predictable resource use on deployments where the backends
// contend for the same model or rate limit.
type Sequential struct{}

func (s *Sequential) Name() Mode { return ModeSequential }

func (s *Sequential) Process(ctx context.Context, req *Request) (*model.ProcessingResult, error) {
	if len(req.Engines) == 0 {
		return nil, engine.ErrNoEnginesAvailable
	}

	ok, failed := splitResults(invokeSequential(ctx, req))
	if errors.Is(ctx.Err(), context.Canceled) {
		return assemble(dedupMerge(ok), ok, failed), engine.ErrCancelled
	}
	if len(ok) == 0 {
		if err := ctx.Err(); err != nil && len(failed) == 0 {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", engine.ErrAllEnginesFailed, failureSummary(failed))
	}
	return assemble(dedupMerge(ok), ok, failed), nil
}
