// Package analyzer derives text characteristics used by the adaptive
// strategy to pick an execution route.
package analyzer

import (
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"

	"descry/pkg/config"
)

// Profile summarizes the structural characteristics of a chapter text.
type Profile struct {
	Runes           int
	Words           int
	Sentences       int
	DialogueLines   int
	DialogueDensity float64 // dialogue lines / non-empty lines
	Complexity      float64 // sentence count weighted by dialogue density
	Language        string  // ISO 639-1, lowercase; empty if undetected
}

// Route is the strategy the adaptive mode should delegate to.
type Route string

const (
	RouteSingle     Route = "single"
	RouteParallel   Route = "parallel"
	RouteSequential Route = "sequential"
	RouteEnsemble   Route = "ensemble"
)

// Analyzer computes text profiles. Safe for concurrent use.
type Analyzer struct {
	cfg      config.AdaptiveConfig
	detector lingua.LanguageDetector
}

// New creates an Analyzer with the given adaptive thresholds.
func New(cfg config.AdaptiveConfig) *Analyzer {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English,
			lingua.Russian,
			lingua.German,
			lingua.French,
			lingua.Spanish,
		).
		Build()

	return &Analyzer{cfg: cfg, detector: detector}
}

// Profile analyzes text structure and language.
func (a *Analyzer) Profile(text string) Profile {
	p := Profile{
		Runes: utf8.RuneCountInString(text),
		Words: len(strings.Fields(text)),
	}

	p.Sentences = countSentences(text)

	lines := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines++
		if isDialogueLine(line) {
			p.DialogueLines++
		}
	}
	if lines > 0 {
		p.DialogueDensity = float64(p.DialogueLines) / float64(lines)
	}

	p.Complexity = float64(p.Sentences) * (1 + a.cfg.DialogueWeight*p.DialogueDensity)

	if lang, ok := a.detector.DetectLanguageOf(text); ok {
		p.Language = strings.ToLower(lang.IsoCode639_1().String())
	}

	return p
}

// RouteFor maps a profile onto an execution route. The thresholds are
// configuration, not policy: longer or more complex texts favor ensemble
// quality, shorter texts favor speed, the mid-range runs sequential.
// multiEngine tells whether more than one engine is available.
func (a *Analyzer) RouteFor(p Profile, multiEngine bool) Route {
	if p.Runes <= a.cfg.ShortMaxRunes {
		if multiEngine {
			return RouteParallel
		}
		return RouteSingle
	}
	if p.Runes >= a.cfg.LongMinRunes || p.Complexity >= a.cfg.ComplexMin {
		return RouteEnsemble
	}
	return RouteSequential
}

func countSentences(text string) int {
	count := 0
	inTerminator := false
	for _, r := range text {
		switch r {
		case '.', '!', '?', '…':
			if !inTerminator {
				count++
				inTerminator = true
			}
		default:
			inTerminator = false
		}
	}
	return count
}

// isDialogueLine recognizes quoted speech and dash-introduced dialogue.
func isDialogueLine(line string) bool {
	if strings.HasPrefix(line, "—") || strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "–") {
		return true
	}
	return strings.ContainsAny(line, "\"“”«»")
}
