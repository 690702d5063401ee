package strategy

import (
	"fmt"
	"strings"

	"descry/pkg/model"
)

// dedupMerge combines successful outputs by simple deduplication, no
// weighting: the first occurrence of a span (in engine registration order)
// wins. Running it twice over the same inputs yields the same set.
func dedupMerge(results []model.EngineResult) []model.Description {
	var out []model.Description
	seen := make(map[string]bool)

	for _, res := range results {
		for _, d := range res.Descriptions {
			key := dedupKey(&d)
			if seen[key] {
				continue
			}
			seen[key] = true
			if d.PriorityScore == 0 {
				// No voter in this path; rank on engine confidence alone.
				d.PriorityScore = model.ClampPriority(d.ConfidenceScore * 100)
			}
			out = append(out, d)
		}
	}

	model.SortDescriptions(out)
	return out
}

func dedupKey(d *model.Description) string {
	return fmt.Sprintf("%s|%d|%s", d.Type, d.PositionInChapter, strings.ToLower(strings.TrimSpace(d.Content)))
}

// assemble fills the strategy-owned fields of a ProcessingResult.
func assemble(descs []model.Description, ok, failed []model.EngineResult) *model.ProcessingResult {
	res := &model.ProcessingResult{
		Descriptions:     descs,
		PerEngineResults: make(map[string][]model.Description, len(ok)),
		EnginesUsed:      make([]string, 0, len(ok)),
		QualityMetrics:   map[string]float64{},
	}
	for _, r := range ok {
		res.EnginesUsed = append(res.EnginesUsed, r.EngineName)
		res.PerEngineResults[r.EngineName] = r.Descriptions
	}
	res.QualityMetrics["engines_succeeded"] = float64(len(ok))
	res.QualityMetrics["engines_failed"] = float64(len(failed))

	for _, r := range failed {
		res.Recommendations = append(res.Recommendations,
			fmt.Sprintf("engine %s failed and was excluded from this call: %v", r.EngineName, r.Err))
	}
	return res
}
