package voter

import (
	"strings"

	"descry/pkg/model"
)

// member is one engine's contribution to a cluster.
type member struct {
	desc   model.Description
	engine string
	order  int // insertion order, stable tie-break of last resort
}

// cluster groups descriptions from different engines judged to refer to the
// same underlying span. The representative is the highest-confidence member
// seen so far; new descriptions are compared against it rather than against
// every member, keeping clustering near-linear.
type cluster struct {
	rep     member
	members []member
	engines map[string]bool
}

func newCluster(m member) *cluster {
	return &cluster{
		rep:     m,
		members: []member{m},
		engines: map[string]bool{m.engine: true},
	}
}

func (c *cluster) add(m member) {
	c.members = append(c.members, m)
	c.engines[m.engine] = true
	if betterRepresentative(m, c.rep) {
		c.rep = m
	}
}

// betterRepresentative ranks by confidence descending, then chapter position
// ascending, then insertion order. Deterministic for testability.
func betterRepresentative(a, b member) bool {
	if a.desc.ConfidenceScore != b.desc.ConfidenceScore {
		return a.desc.ConfidenceScore > b.desc.ConfidenceScore
	}
	if a.desc.PositionInChapter != b.desc.PositionInChapter {
		return a.desc.PositionInChapter < b.desc.PositionInChapter
	}
	return a.order < b.order
}

// matches reports whether d belongs in this cluster: same type, chapter
// positions within the offset window, and text similarity above the floor.
func (c *cluster) matches(d *model.Description, offsetWindow int, similarityFloor float64) bool {
	if d.Type != c.rep.desc.Type {
		return false
	}
	delta := d.PositionInChapter - c.rep.desc.PositionInChapter
	if delta < 0 {
		delta = -delta
	}
	if delta > offsetWindow {
		return false
	}
	return tokenOverlap(d.Content, c.rep.desc.Content) >= similarityFloor
}

// tokenOverlap computes the Jaccard ratio over lowercased tokens.
// Cheaper than edit distance and adequate at the default 0.5 floor.
func tokenOverlap(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for tok := range ta {
		if tb[tok] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[strings.Trim(f, ".,;:!?\"'«»“”…—()")] = true
	}
	delete(set, "")
	return set
}
