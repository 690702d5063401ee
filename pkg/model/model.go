package model

import (
	"sort"
	"time"
)

// DescriptionType classifies an extracted span for downstream routing and weighting.
type DescriptionType string

const (
	TypeLocation   DescriptionType = "location"
	TypeCharacter  DescriptionType = "character"
	TypeAtmosphere DescriptionType = "atmosphere"
	TypeObject     DescriptionType = "object"
	TypeAction     DescriptionType = "action"
)

// AllDescriptionTypes lists every known type in a stable order.
var AllDescriptionTypes = []DescriptionType{
	TypeLocation, TypeCharacter, TypeAtmosphere, TypeObject, TypeAction,
}

// Valid reports whether t is one of the known description types.
func (t DescriptionType) Valid() bool {
	switch t {
	case TypeLocation, TypeCharacter, TypeAtmosphere, TypeObject, TypeAction:
		return true
	}
	return false
}

// Description is one extracted narrative span.
// Instances are immutable once returned by an engine or the voter.
type Description struct {
	Type              DescriptionType `json:"type"`
	Content           string          `json:"content"`
	Context           string          `json:"context,omitempty"`
	PositionInChapter int             `json:"position_in_chapter"`
	ConfidenceScore   float64         `json:"confidence_score"` // [0,1]
	PriorityScore     float64         `json:"priority_score"`   // [0,100]

	// Optional enrichment fields.
	WordCount               int      `json:"word_count,omitempty"`
	IsSuitableForGeneration bool     `json:"is_suitable_for_generation,omitempty"`
	EntitiesMentioned       []string `json:"entities_mentioned,omitempty"`
	EmotionalTone           string   `json:"emotional_tone,omitempty"`
	ComplexityLevel         string   `json:"complexity_level,omitempty"`
}

// Validate reports whether the description satisfies its invariants:
// non-empty content, scores within bounds, non-negative position.
func (d *Description) Validate() bool {
	if d.Content == "" || !d.Type.Valid() {
		return false
	}
	if d.ConfidenceScore < 0 || d.ConfidenceScore > 1 {
		return false
	}
	if d.PriorityScore < 0 || d.PriorityScore > 100 {
		return false
	}
	return d.PositionInChapter >= 0
}

// EngineResult is the raw output of one engine invocation for one text.
// If Err is set, Descriptions is empty.
type EngineResult struct {
	EngineName   string
	Descriptions []Description
	Elapsed      time.Duration
	Err          error
}

// ProcessingResult is the orchestrator's return value.
type ProcessingResult struct {
	RequestID        string                   `json:"request_id"`
	Descriptions     []Description            `json:"descriptions"`
	PerEngineResults map[string][]Description `json:"per_engine_results,omitempty"`
	ProcessingTime   time.Duration            `json:"processing_time"`
	EnginesUsed      []string                 `json:"engines_used"`
	QualityMetrics   map[string]float64       `json:"quality_metrics,omitempty"`
	Recommendations  []string                 `json:"recommendations,omitempty"`
}

// SortDescriptions orders descriptions by priority descending, ties broken by
// chapter position ascending. The ordering is deterministic regardless of
// engine completion order.
func SortDescriptions(descs []Description) {
	sort.SliceStable(descs, func(i, j int) bool {
		if descs[i].PriorityScore != descs[j].PriorityScore {
			return descs[i].PriorityScore > descs[j].PriorityScore
		}
		return descs[i].PositionInChapter < descs[j].PositionInChapter
	})
}

// EngineStatus describes one registered engine for health monitoring.
type EngineStatus struct {
	Name        string        `json:"name"`
	Available   bool          `json:"available"`
	Enabled     bool          `json:"enabled"`
	Weight      float64       `json:"weight"`
	LastError   string        `json:"last_error,omitempty"`
	LastLatency time.Duration `json:"last_latency,omitempty"`
}

// ClampConfidence forces v into [0,1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampPriority forces v into [0,100].
func ClampPriority(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
