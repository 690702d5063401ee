package strategy

import (
	"context"
	"errors"
	"fmt"

	"descry/pkg/engine"
	"descry/pkg/model"
)

// Parallel fans out to every available engine concurrently and merges their
// outputs by deduplication. Failures degrade the result instead of failing
// the call, as long as at least one engine succeeds.
type Parallel struct{}

func (s *Parallel) Name() Mode { return ModeParallel }

func (s *Parallel) Process(ctx context.Context, req *Request) (*model.ProcessingResult, error) {
	if len(req.Engines) == 0 {
		return nil, engine.ErrNoEnginesAvailable
	}

	ok, failed := splitResults(invokeAll(ctx, req))
	if errors.Is(ctx.Err(), context.Canceled) {
		return assemble(dedupMerge(ok), ok, failed), engine.ErrCancelled
	}
	if len(ok) == 0 {
		return nil, fmt.Errorf("%w: %s", engine.ErrAllEnginesFailed, failureSummary(failed))
	}
	return assemble(dedupMerge(ok), ok, failed), nil
}

func failureSummary(failed []model.EngineResult) string {
	s := ""
	for i, r := range failed {
		if i > 0 {
			s += "; "
		}
		s += r.Err.Error()
	}
	return s
}
