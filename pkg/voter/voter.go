// Package voter implements weighted-consensus combination of multiple
// engines' raw outputs into a single deduplicated, confidence-scored set.
// It has no dependency on the orchestrator and is independently testable.
package voter

import (
	"log/slog"
	"strings"

	"descry/pkg/config"
	"descry/pkg/model"
)

// epsilon guards the threshold comparison against float rounding
// (2/3 of equal weights must pass a 0.6667 threshold).
const epsilon = 1e-9

// Voter combines N engines' raw descriptions using weighted consensus.
type Voter struct {
	ens  config.EnsembleConfig
	prio config.PriorityConfig
}

// New creates a Voter with the given voting and priority parameters.
func New(ens config.EnsembleConfig, prio config.PriorityConfig) *Voter {
	return &Voter{ens: ens, prio: prio}
}

// Combine merges raw engine results into one authoritative description set
// plus aggregate quality metrics. The results slice must contain only engines
// that actually ran: an engine that errored or was unavailable must not be
// passed in, or the consensus denominator would unfairly penalize the run.
// Engine results are treated as immutable.
func (v *Voter) Combine(results []model.EngineResult) ([]model.Description, map[string]float64) {
	if len(results) == 0 {
		return nil, map[string]float64{}
	}

	// A single-engine run short-circuits voting: there is no clustering
	// benefit with one contributor. Confidence passes through unchanged.
	if len(results) == 1 {
		return v.passThrough(results[0]), map[string]float64{
			"consensus_rate": 1.0,
		}
	}

	totalWeight := 0.0
	for _, res := range results {
		totalWeight += v.weightOf(res.EngineName)
	}
	if totalWeight <= 0 {
		slog.Warn("Voter: total engine weight is zero, nothing to combine")
		return nil, map[string]float64{}
	}

	clusters := v.clusterAll(results)
	if len(clusters) == 0 {
		return nil, map[string]float64{"consensus_rate": 0}
	}

	var accepted []model.Description
	typeCounts := make(map[model.DescriptionType]int)
	confSum := 0.0

	for _, c := range clusters {
		clusterWeight := 0.0
		for name := range c.engines {
			clusterWeight += v.weightOf(name)
		}
		ratio := clusterWeight / totalWeight
		if ratio+epsilon < v.ens.ConsensusThreshold {
			continue
		}

		d := v.finalize(c, ratio)
		accepted = append(accepted, d)
		typeCounts[d.Type]++
		confSum += d.ConfidenceScore
	}

	metrics := map[string]float64{
		"consensus_rate": float64(len(accepted)) / float64(len(clusters)),
	}
	if len(accepted) > 0 {
		metrics["avg_confidence"] = confSum / float64(len(accepted))
		for typ, n := range typeCounts {
			metrics["coverage_"+string(typ)] = float64(n) / float64(len(accepted))
		}
	}

	model.SortDescriptions(accepted)
	return accepted, metrics
}

// clusterAll runs the single-pass clustering: each description is compared
// against existing cluster representatives only, not all pairs.
func (v *Voter) clusterAll(results []model.EngineResult) []*cluster {
	var clusters []*cluster
	order := 0

	for _, res := range results {
		for i := range res.Descriptions {
			m := member{desc: res.Descriptions[i], engine: res.EngineName, order: order}
			order++

			placed := false
			for _, c := range clusters {
				if c.matches(&m.desc, v.ens.OffsetWindow, v.ens.SimilarityFloor) {
					c.add(m)
					placed = true
					break
				}
			}
			if !placed {
				clusters = append(clusters, newCluster(m))
			}
		}
	}
	return clusters
}

// finalize builds the output description for an accepted cluster:
// the representative's span, a recomputed weighted-average confidence, and
// context/entities unioned across members.
func (v *Voter) finalize(c *cluster, ratio float64) model.Description {
	out := c.rep.desc

	weightSum := 0.0
	confSum := 0.0
	for _, m := range c.members {
		w := v.weightOf(m.engine)
		weightSum += w
		confSum += w * m.desc.ConfidenceScore
	}
	if weightSum > 0 {
		out.ConfidenceScore = model.ClampConfidence(confSum / weightSum)
	}

	out.Context = unionContexts(c.members)
	out.EntitiesMentioned = unionEntities(c.members)
	out.PriorityScore = v.priorityScore(out.Type, out.ConfidenceScore, ratio)

	return out
}

// passThrough keeps a single engine's descriptions as-is, computing only the
// priority score so the final ordering contract still holds.
func (v *Voter) passThrough(res model.EngineResult) []model.Description {
	out := make([]model.Description, len(res.Descriptions))
	copy(out, res.Descriptions)
	for i := range out {
		out[i].PriorityScore = v.priorityScore(out[i].Type, out[i].ConfidenceScore, 1.0)
	}
	model.SortDescriptions(out)
	return out
}

// priorityScore composes recomputed confidence (primary factor), the cluster
// weight ratio (higher consensus, higher priority) and the configurable
// per-type weight into a [0,100] score.
func (v *Voter) priorityScore(typ model.DescriptionType, confidence, ratio float64) float64 {
	cw := v.prio.ConfidenceWeight
	sw := v.prio.ConsensusWeight
	if cw+sw <= 0 {
		cw, sw = 0.7, 0.3
	}

	base := (confidence*cw + ratio*sw) / (cw + sw) * 100

	if tw, ok := v.prio.TypeWeights[string(typ)]; ok && tw > 0 {
		base *= tw
	}
	return model.ClampPriority(base)
}

func (v *Voter) weightOf(engine string) float64 {
	if w, ok := v.ens.EngineWeights[engine]; ok && w > 0 {
		return w
	}
	return config.DefaultEngineWeight
}

func unionContexts(members []member) string {
	var parts []string
	seen := make(map[string]bool)
	for _, m := range members {
		ctx := strings.TrimSpace(m.desc.Context)
		if ctx == "" || seen[ctx] {
			continue
		}
		seen[ctx] = true
		parts = append(parts, ctx)
	}
	return strings.Join(parts, " ")
}

func unionEntities(members []member) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range members {
		for _, e := range m.desc.EntitiesMentioned {
			if e == "" || seen[e] {
				continue
			}
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}
