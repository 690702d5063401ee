// Package gemini implements an extraction engine backed by Google Gemini.
// The model is asked for structured JSON; its output is sanitized, decoded
// and clamped before it enters the pipeline.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"google.golang.org/genai"

	"descry/pkg/model"
)

const (
	engineName   = "gemini"
	defaultModel = "gemini-2.0-flash"
)

// Engine calls the Gemini API for description extraction.
type Engine struct {
	mu          sync.RWMutex
	genaiClient *genai.Client
	modelName   string
}

// New creates a Gemini engine. An empty API key yields an engine that
// reports itself unavailable instead of an error, so startup works on
// machines without credentials.
func New(apiKey, modelName string) (*Engine, error) {
	e := &Engine{modelName: modelName}
	if e.modelName == "" {
		e.modelName = defaultModel
	}
	if apiKey == "" {
		slog.Info("Gemini: no API key, engine disabled")
		return e, nil
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	e.genaiClient = client
	return e, nil
}

func (e *Engine) Name() string { return engineName }

func (e *Engine) IsAvailable() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.genaiClient != nil
}

// Extract sends the chapter to the model and decodes its JSON answer.
func (e *Engine) Extract(ctx context.Context, text, chapterID string) ([]model.Description, error) {
	e.mu.RLock()
	client := e.genaiClient
	modelName := e.modelName
	e.mu.RUnlock()

	if client == nil {
		return nil, fmt.Errorf("gemini client not configured")
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.2),
	}

	resp, err := client.Models.GenerateContent(ctx, modelName, genai.Text(buildPrompt(text)), cfg)
	if err != nil {
		return nil, fmt.Errorf("generate content error: %w", err)
	}

	raw, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	descs, err := decodeDescriptions(raw, utf8.RuneCountInString(text))
	if err != nil {
		return nil, err
	}

	slog.Debug("Gemini: extraction decoded", "chapter", chapterID, "descriptions", len(descs))
	return descs, nil
}

func buildPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString(`Extract visually descriptive passages from the chapter below.
Return a JSON array. Each element:
  {"type": "location|character|atmosphere|object|action",
   "content": "the descriptive passage, verbatim",
   "position": <character offset of the passage start>,
   "confidence": <0.0-1.0>,
   "context": "one surrounding sentence",
   "entities": ["named people or places mentioned"],
   "emotional_tone": "one word"}
Only include passages that actually describe something visible. Respond with the JSON array only.

CHAPTER:
`)
	sb.WriteString(text)
	return sb.String()
}

// wireDescription is the JSON shape the model is asked for.
type wireDescription struct {
	Type          string   `json:"type"`
	Content       string   `json:"content"`
	Position      int      `json:"position"`
	Confidence    float64  `json:"confidence"`
	Context       string   `json:"context"`
	Entities      []string `json:"entities"`
	EmotionalTone string   `json:"emotional_tone"`
}

// decodeDescriptions sanitizes and decodes the model output. Elements with
// an unknown type or empty content are dropped with a warning rather than
// failing the call; scores and positions are clamped into range.
func decodeDescriptions(raw string, textRunes int) ([]model.Description, error) {
	cleaned := cleanJSONBlock(raw)

	var wire []wireDescription
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extraction response: %w", err)
	}

	var out []model.Description
	for _, w := range wire {
		typ := model.DescriptionType(strings.ToLower(strings.TrimSpace(w.Type)))
		content := strings.TrimSpace(w.Content)
		if !typ.Valid() || content == "" {
			slog.Warn("Gemini: dropping malformed element", "type", w.Type, "content_len", len(w.Content))
			continue
		}

		pos := w.Position
		if pos < 0 {
			pos = 0
		}
		if textRunes > 0 && pos >= textRunes {
			pos = textRunes - 1
		}

		wordCount := len(strings.Fields(content))
		conf := model.ClampConfidence(w.Confidence)
		out = append(out, model.Description{
			Type:                    typ,
			Content:                 content,
			Context:                 strings.TrimSpace(w.Context),
			PositionInChapter:       pos,
			ConfidenceScore:         conf,
			WordCount:               wordCount,
			IsSuitableForGeneration: wordCount >= 6 && conf >= 0.5,
			EntitiesMentioned:       w.Entities,
			EmotionalTone:           strings.TrimSpace(w.EmotionalTone),
		})
	}
	return out, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}
