package strategy

import (
	"context"
	"errors"
	"fmt"

	"descry/pkg/engine"
	"descry/pkg/model"
	"descry/pkg/voter"
)

// Ensemble fans out to every available engine and resolves their outputs
// through weighted-consensus voting instead of plain deduplication. It is
// the highest-quality, highest-cost mode.
type Ensemble struct{}

func (s *Ensemble) Name() Mode { return ModeEnsemble }

func (s *Ensemble) Process(ctx context.Context, req *Request) (*model.ProcessingResult, error) {
	if len(req.Engines) == 0 {
		return nil, engine.ErrNoEnginesAvailable
	}

	ok, failed := splitResults(invokeAll(ctx, req))
	cancelled := errors.Is(ctx.Err(), context.Canceled)
	if len(ok) == 0 {
		if cancelled {
			return assemble(nil, nil, failed), engine.ErrCancelled
		}
		return nil, fmt.Errorf("%w: %s", engine.ErrAllEnginesFailed, failureSummary(failed))
	}

	descs, metrics := voter.New(req.Ensemble, req.Priority).Combine(ok)

	res := assemble(descs, ok, failed)
	for k, v := range metrics {
		res.QualityMetrics[k] = v
	}
	if rate, present := metrics["consensus_rate"]; present && rate < 0.5 && len(ok) > 1 {
		res.Recommendations = append(res.Recommendations,
			"engines agreed on fewer than half of the candidate spans; consider lowering the consensus threshold or reviewing engine weights")
	}
	if cancelled {
		return res, engine.ErrCancelled
	}
	return res, nil
}
