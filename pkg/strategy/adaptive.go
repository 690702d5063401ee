package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"descry/pkg/analyzer"
	"descry/pkg/model"
)

// Adaptive profiles the text and delegates to whichever concrete strategy
// fits it: short texts go wide and fast, long or dialogue-heavy ones earn
// the full ensemble, the mid-range runs sequential.
type Adaptive struct {
	an   *analyzer.Analyzer
	pick func(Mode) (Strategy, error)
}

func (s *Adaptive) Name() Mode { return ModeAdaptive }

func (s *Adaptive) Process(ctx context.Context, req *Request) (*model.ProcessingResult, error) {
	profile := s.an.Profile(req.Text)
	route := s.an.RouteFor(profile, len(req.Engines) > 1)

	delegate, err := s.pick(Mode(route))
	if err != nil {
		return nil, fmt.Errorf("adaptive route %q: %w", route, err)
	}

	slog.Info("Adaptive: routed request",
		"route", route,
		"runes", profile.Runes,
		"sentences", profile.Sentences,
		"complexity", profile.Complexity,
		"language", profile.Language,
		"engines", len(req.Engines))

	// A cancelled delegate returns a partial result alongside its error;
	// both must flow through.
	res, err := delegate.Process(ctx, req)
	if res != nil {
		res.QualityMetrics["text_runes"] = float64(profile.Runes)
		res.QualityMetrics["text_complexity"] = profile.Complexity
	}
	return res, err
}
