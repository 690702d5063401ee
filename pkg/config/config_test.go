package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"descry/pkg/store"
)

func TestLoad_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "descry.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Load() should have created %s: %v", path, err)
	}
	if cfg.Ensemble.ConsensusThreshold != DefaultConsensusThreshold {
		t.Errorf("ConsensusThreshold = %v, want %v", cfg.Ensemble.ConsensusThreshold, DefaultConsensusThreshold)
	}
	if cfg.Orchestrator.Mode != "adaptive" {
		t.Errorf("Mode = %q, want adaptive", cfg.Orchestrator.Mode)
	}
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "descry.yaml")
	yaml := `
orchestrator:
  mode: ensemble
  budget: 30s
ensemble:
  consensus_threshold: 0.75
engines:
  lexicon:
    enabled: true
    weight: 0.8
    timeout: 2s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Orchestrator.Mode != "ensemble" {
		t.Errorf("Mode = %q, want ensemble", cfg.Orchestrator.Mode)
	}
	if time.Duration(cfg.Orchestrator.Budget) != 30*time.Second {
		t.Errorf("Budget = %v, want 30s", time.Duration(cfg.Orchestrator.Budget))
	}
	if cfg.Ensemble.ConsensusThreshold != 0.75 {
		t.Errorf("ConsensusThreshold = %v, want 0.75", cfg.Ensemble.ConsensusThreshold)
	}
	if w := cfg.Engines["lexicon"].Weight; w != 0.8 {
		t.Errorf("lexicon weight = %v, want 0.8", w)
	}
	// Defaults survive for untouched sections
	if cfg.Log.Level != "INFO" {
		t.Errorf("Log.Level = %q, want INFO", cfg.Log.Level)
	}
}

func TestParseDuration_ExtendedUnits(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"5s", 5 * time.Second},
		{"2h45m", 2*time.Hour + 45*time.Minute},
		{"1d", Day},
		{"1w", Week},
		{"1d12h", Day + 12*time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if err != nil {
				t.Fatalf("ParseDuration(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestProvider_StoreOverrides(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	base := DefaultConfig()
	p := NewProvider(base, st)

	if got := p.Mode(ctx); got != "adaptive" {
		t.Errorf("Mode fallback = %q, want adaptive", got)
	}
	if err := st.SetState(ctx, KeyMode, "parallel"); err != nil {
		t.Fatal(err)
	}
	if got := p.Mode(ctx); got != "parallel" {
		t.Errorf("Mode override = %q, want parallel", got)
	}

	if got := p.EngineWeight(ctx, "gemini"); got != 1.2 {
		t.Errorf("EngineWeight fallback = %v, want 1.2", got)
	}
	if err := st.SetState(ctx, EngineWeightKey("gemini"), "0.9"); err != nil {
		t.Fatal(err)
	}
	if got := p.EngineWeight(ctx, "gemini"); got != 0.9 {
		t.Errorf("EngineWeight override = %v, want 0.9", got)
	}

	// Unknown engine falls back to the global default.
	if got := p.EngineWeight(ctx, "nonexistent"); got != DefaultEngineWeight {
		t.Errorf("EngineWeight unknown = %v, want %v", got, DefaultEngineWeight)
	}
	if got := p.EngineTimeout(ctx, "nonexistent"); got != DefaultEngineTimeout {
		t.Errorf("EngineTimeout unknown = %v, want %v", got, DefaultEngineTimeout)
	}
}

func TestLoader_SubstitutesDefaults(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	base := DefaultConfig()
	base.Ensemble.ConsensusThreshold = 1.7 // out of (0,1]
	base.Ensemble.SimilarityFloor = -1
	base.Engines["lexicon"] = EngineConfig{Enabled: true, Weight: -2, Timeout: Duration(-time.Second)}

	loader := NewLoader(NewProvider(base, st))
	engines, ens, err := loader.Load(ctx, []string{"lexicon", "gemini"})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if ens.ConsensusThreshold != DefaultConsensusThreshold {
		t.Errorf("ConsensusThreshold = %v, want default %v", ens.ConsensusThreshold, DefaultConsensusThreshold)
	}
	if ens.SimilarityFloor != DefaultSimilarityFloor {
		t.Errorf("SimilarityFloor = %v, want default %v", ens.SimilarityFloor, DefaultSimilarityFloor)
	}
	lex := engines["lexicon"]
	if lex.Weight != DefaultEngineWeight {
		t.Errorf("lexicon weight = %v, want default %v", lex.Weight, DefaultEngineWeight)
	}
	if time.Duration(lex.Timeout) != DefaultEngineTimeout {
		t.Errorf("lexicon timeout = %v, want default %v", time.Duration(lex.Timeout), DefaultEngineTimeout)
	}
	if ens.EngineWeights["gemini"] != 1.2 {
		t.Errorf("gemini weight = %v, want 1.2", ens.EngineWeights["gemini"])
	}
}

func TestLoader_FatalCases(t *testing.T) {
	ctx := context.Background()
	base := DefaultConfig()
	loader := NewLoader(NewProvider(base, store.NewMemStore()))

	if _, _, err := loader.Load(ctx, nil); err == nil {
		t.Error("Load with no engines should fail")
	}

	base2 := DefaultConfig()
	base2.Engines = map[string]EngineConfig{
		"lexicon": {Enabled: false, Weight: 1},
		"gemini":  {Enabled: false, Weight: 1},
	}
	loader2 := NewLoader(NewProvider(base2, store.NewMemStore()))
	if _, _, err := loader2.Load(ctx, []string{"lexicon", "gemini"}); err == nil {
		t.Error("Load with every engine disabled should fail")
	}
}
