package strategy

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"descry/pkg/engine"
	"descry/pkg/model"
)

// invokeOne runs a single engine under its per-engine deadline. A timed-out
// invocation is abandoned: the engine gets a cancellation signal through its
// context and its goroutine is left to drain, so one slow engine cannot
// stall the batch beyond its own timeout.
func invokeOne(ctx context.Context, e engine.ExtractionEngine, req *Request) model.EngineResult {
	name := e.Name()
	timeout := req.timeoutFor(name)

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		descs []model.Description
		err   error
	}
	done := make(chan outcome, 1)

	start := time.Now()
	go func() {
		descs, err := e.Extract(callCtx, req.Text, req.ChapterID)
		done <- outcome{descs, err}
	}()

	res := model.EngineResult{EngineName: name}

	select {
	case out := <-done:
		res.Elapsed = time.Since(start)
		switch {
		case out.err == nil:
			res.Descriptions = validOnly(name, out.descs)
		case errors.Is(out.err, context.Canceled):
			res.Err = engine.NewCancelError(name, out.err)
		case errors.Is(out.err, context.DeadlineExceeded):
			res.Err = engine.NewTimeoutError(name, out.err)
		default:
			res.Err = engine.NewCallError(name, out.err)
		}
	case <-callCtx.Done():
		// Caller cancellation and deadline overrun both arrive here; they
		// must stay distinguishable downstream.
		res.Elapsed = time.Since(start)
		if errors.Is(callCtx.Err(), context.Canceled) {
			res.Err = engine.NewCancelError(name, callCtx.Err())
		} else {
			res.Err = engine.NewTimeoutError(name, callCtx.Err())
		}
	}

	if res.Err != nil {
		slog.Warn("Strategy: engine call failed", "engine", name, "elapsed", res.Elapsed, "error", res.Err)
	} else {
		slog.Debug("Strategy: engine call completed", "engine", name, "elapsed", res.Elapsed, "descriptions", len(res.Descriptions))
	}

	if req.Observer != nil {
		req.Observer.RecordOutcome(name, res.Elapsed, len(res.Descriptions), res.Err)
	}
	return res
}

// invokeAll fans out one goroutine per engine and joins with a bounded wait:
// each branch is individually capped by its engine timeout, so the join
// cannot outlive the slowest configured deadline. Results come back in
// engine order regardless of completion order.
func invokeAll(ctx context.Context, req *Request) []model.EngineResult {
	results := make([]model.EngineResult, len(req.Engines))

	var wg sync.WaitGroup
	for i, e := range req.Engines {
		wg.Add(1)
		go func(i int, e engine.ExtractionEngine) {
			defer wg.Done()
			results[i] = invokeOne(ctx, e, req)
		}(i, e)
	}
	wg.Wait()

	return results
}

// invokeSequential runs engines one at a time in registration order, for
// deployments where concurrent invocation contends on shared models.
func invokeSequential(ctx context.Context, req *Request) []model.EngineResult {
	results := make([]model.EngineResult, 0, len(req.Engines))
	for _, e := range req.Engines {
		if ctx.Err() != nil {
			break
		}
		results = append(results, invokeOne(ctx, e, req))
	}
	return results
}

// splitResults partitions raw results into successes and failures.
func splitResults(results []model.EngineResult) (ok, failed []model.EngineResult) {
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
			continue
		}
		ok = append(ok, r)
	}
	return ok, failed
}

// validOnly drops descriptions violating the model invariants. Engines are
// opaque; garbage in their output is their bug, not a call failure.
func validOnly(engineName string, descs []model.Description) []model.Description {
	out := descs[:0:0]
	for _, d := range descs {
		if !d.Validate() {
			slog.Warn("Strategy: dropping invalid description", "engine", engineName, "type", d.Type, "position", d.PositionInChapter)
			continue
		}
		out = append(out, d)
	}
	return out
}
