package config

// Persistent state keys (Registry)
const (
	KeyMode               = "processing_mode"
	KeyConsensusThreshold = "consensus_threshold"
	KeyDefaultEngine      = "default_engine"

	// Per-engine keys are built with EngineKey, e.g. "engine_gemini_weight".
	keyEngineWeightSuffix  = "weight"
	keyEngineEnabledSuffix = "enabled"
	keyEngineTimeoutSuffix = "timeout"
)

// EngineKey builds the state key for a per-engine setting.
func EngineKey(name, suffix string) string {
	return "engine_" + name + "_" + suffix
}

// EngineWeightKey returns the state key holding an engine's weight override.
func EngineWeightKey(name string) string { return EngineKey(name, keyEngineWeightSuffix) }

// EngineEnabledKey returns the state key holding an engine's enabled override.
func EngineEnabledKey(name string) string { return EngineKey(name, keyEngineEnabledSuffix) }

// EngineTimeoutKey returns the state key holding an engine's timeout override.
func EngineTimeoutKey(name string) string { return EngineKey(name, keyEngineTimeoutSuffix) }
