// Package lexicon implements the built-in heuristic extraction engine. It
// needs no network or model: descriptive spans are recognized by cue-word
// density per sentence, which makes it the always-available baseline the
// orchestrator can fall back to.
package lexicon

import (
	"context"
	"strings"
	"unicode"

	"descry/pkg/model"
)

const engineName = "lexicon"

// minCueHits is how many cue words a sentence needs before it counts as a
// description of that type.
const minCueHits = 2

// cues maps each description type to the words that signal it. Lowercase,
// matched on word boundaries.
var cues = map[model.DescriptionType][]string{
	model.TypeLocation: {
		"room", "hall", "street", "forest", "mountain", "city", "village",
		"tower", "castle", "river", "shore", "valley", "garden", "door",
		"window", "house", "wall", "bridge", "field", "sky", "road",
		"harbor", "cellar", "chapel", "pier", "corridor", "courtyard",
	},
	model.TypeCharacter: {
		"eyes", "hair", "face", "tall", "thin", "wore", "dressed", "smile",
		"voice", "hands", "beard", "slender", "figure", "cloak", "scar",
		"old", "young", "man", "woman", "boy", "girl",
	},
	model.TypeAtmosphere: {
		"fog", "mist", "silence", "shadow", "gloom", "cold", "warm", "dark",
		"light", "smell", "scent", "air", "wind", "rain", "dusk", "dawn",
		"quiet", "heavy", "still", "damp", "smoke",
	},
	model.TypeObject: {
		"sword", "lamp", "book", "table", "chair", "box", "ring", "bottle",
		"rope", "knife", "letter", "candle", "chest", "mirror", "clock",
		"key", "coin", "lantern", "map", "bell",
	},
	model.TypeAction: {
		"ran", "leapt", "grabbed", "struck", "fell", "rushed", "threw",
		"climbed", "fought", "chased", "slammed", "burst", "stumbled",
		"lunged", "dashed",
	},
}

// Engine is the heuristic lexicon engine.
type Engine struct{}

// New creates the lexicon engine.
func New() *Engine { return &Engine{} }

func (e *Engine) Name() string { return engineName }

// IsAvailable always reports true: the engine has no external dependency.
func (e *Engine) IsAvailable() bool { return true }

// Extract scans the text sentence by sentence and emits a description for
// each sentence whose cue-word density clears the floor for some type.
// Output order follows chapter position, so repeated runs are identical.
func (e *Engine) Extract(ctx context.Context, text, chapterID string) ([]model.Description, error) {
	var out []model.Description

	for _, s := range splitSentences(text) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		words := tokenize(s.text)
		if len(words) == 0 {
			continue
		}

		typ, hits := bestType(words)
		if hits < minCueHits {
			continue
		}

		conf := model.ClampConfidence(0.3 + 0.15*float64(hits))
		out = append(out, model.Description{
			Type:                    typ,
			Content:                 s.text,
			PositionInChapter:       s.pos,
			ConfidenceScore:         conf,
			WordCount:               len(words),
			IsSuitableForGeneration: len(words) >= 6 && conf >= 0.5,
			EntitiesMentioned:       properNouns(s.text),
		})
	}

	return out, nil
}

// bestType returns the type with the most cue hits. Ties resolve in the
// stable order of AllDescriptionTypes.
func bestType(words []string) (model.DescriptionType, int) {
	set := make(map[string]int, len(words))
	for _, w := range words {
		set[w]++
	}

	best := model.AllDescriptionTypes[0]
	bestHits := 0
	for _, typ := range model.AllDescriptionTypes {
		hits := 0
		for _, cue := range cues[typ] {
			hits += set[cue]
		}
		if hits > bestHits {
			best, bestHits = typ, hits
		}
	}
	return best, bestHits
}

type sentence struct {
	text string
	pos  int // rune offset of the first rune
}

func splitSentences(text string) []sentence {
	var out []sentence
	start := -1
	pos := 0

	flush := func(buf []rune) {
		s := strings.TrimSpace(string(buf))
		if s != "" {
			out = append(out, sentence{text: s, pos: start})
		}
	}

	var buf []rune
	for _, r := range text {
		if start == -1 && !unicode.IsSpace(r) {
			start = pos
		}
		buf = append(buf, r)
		if r == '.' || r == '!' || r == '?' || r == '…' || r == '\n' {
			flush(buf)
			buf = buf[:0]
			start = -1
		}
		pos++
	}
	flush(buf)
	return out
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// properNouns collects capitalized words that do not open a sentence,
// a cheap stand-in for entity recognition.
func properNouns(s string) []string {
	var out []string
	seen := make(map[string]bool)
	words := strings.Fields(s)
	for i, w := range words {
		w = strings.Trim(w, ".,;:!?\"'«»“”()—-")
		if w == "" || i == 0 {
			continue
		}
		r := []rune(w)
		if !unicode.IsUpper(r[0]) {
			continue
		}
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
