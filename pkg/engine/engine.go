// Package engine defines the pluggable extraction-engine contract and the
// registry that owns engine instances.
package engine

import (
	"context"

	"descry/pkg/model"
)

// ExtractionEngine is the contract every pluggable engine must satisfy.
// Engines are opaque: the orchestrator never inspects their internals.
// Implementations must be safe for concurrent invocation from multiple
// goroutines on different texts.
type ExtractionEngine interface {
	// Extract returns the description spans found in text. The caller
	// supplies a deadline through ctx; on timeout or internal failure the
	// engine returns an error rather than partial data.
	Extract(ctx context.Context, text, chapterID string) ([]model.Description, error)

	// Name is the stable identifier used for weighting and diagnostics.
	Name() string

	// IsAvailable is a cheap health check. Strategies must not invoke
	// engines that report false; health can change between calls (e.g. a
	// backing model unloaded under memory pressure).
	IsAvailable() bool
}
