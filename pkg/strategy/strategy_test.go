package strategy

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"descry/pkg/config"
	"descry/pkg/engine"
	"descry/pkg/model"
)

type fakeEngine struct {
	name  string
	descs []model.Description
	err   error
	delay time.Duration
	calls int
}

func (f *fakeEngine) Name() string      { return f.name }
func (f *fakeEngine) IsAvailable() bool { return true }

func (f *fakeEngine) Extract(ctx context.Context, text, chapterID string) ([]model.Description, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.descs, f.err
}

func d(typ model.DescriptionType, content string, pos int, conf float64) model.Description {
	return model.Description{Type: typ, Content: content, PositionInChapter: pos, ConfidenceScore: conf}
}

func request(engines ...engine.ExtractionEngine) *Request {
	configs := make(map[string]config.EngineConfig, len(engines))
	weights := make(map[string]float64, len(engines))
	for _, e := range engines {
		configs[e.Name()] = config.EngineConfig{Enabled: true, Weight: 1.0, Timeout: config.Duration(time.Second)}
		weights[e.Name()] = 1.0
	}
	return &Request{
		Text:      "The lighthouse stood alone on the black rocks.",
		ChapterID: "ch-1",
		Engines:   engines,
		Configs:   configs,
		Ensemble: config.EnsembleConfig{
			ConsensusThreshold: 0.6,
			OffsetWindow:       40,
			SimilarityFloor:    0.5,
			EngineWeights:      weights,
		},
		Priority: config.PriorityConfig{ConfidenceWeight: 0.7, ConsensusWeight: 0.3},
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range AllModes {
		if _, err := ParseMode(string(m)); err != nil {
			t.Errorf("ParseMode(%q) failed: %v", m, err)
		}
	}
	if _, err := ParseMode("turbo"); !errors.Is(err, engine.ErrInvalidMode) {
		t.Errorf("ParseMode(turbo) = %v, want ErrInvalidMode", err)
	}
}

func TestSingle_UsesDefaultEngine(t *testing.T) {
	a := &fakeEngine{name: "a", descs: []model.Description{d(model.TypeLocation, "the lighthouse on black rocks", 0, 0.8)}}
	b := &fakeEngine{name: "b", descs: []model.Description{d(model.TypeObject, "a brass lamp", 10, 0.9)}}

	req := request(a, b)
	req.DefaultEngine = "b"

	res, err := (&Single{}).Process(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if a.calls != 0 || b.calls != 1 {
		t.Errorf("calls a=%d b=%d, want only the default engine invoked", a.calls, b.calls)
	}
	if !reflect.DeepEqual(res.EnginesUsed, []string{"b"}) {
		t.Errorf("EnginesUsed = %v", res.EnginesUsed)
	}
}

func TestSingle_FallbackPolicy(t *testing.T) {
	a := &fakeEngine{name: "a", descs: []model.Description{d(model.TypeLocation, "the lighthouse", 0, 0.8)}}

	req := request(a)
	req.DefaultEngine = "missing"

	if _, err := (&Single{}).Process(context.Background(), req); !errors.Is(err, engine.ErrEngineUnavailable) {
		t.Errorf("without fallback: err = %v, want ErrEngineUnavailable", err)
	}

	req.FallbackToAny = true
	res, err := (&Single{}).Process(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.EnginesUsed, []string{"a"}) {
		t.Errorf("EnginesUsed = %v, want fallback to a", res.EnginesUsed)
	}
}

func TestSingle_NoEngines(t *testing.T) {
	if _, err := (&Single{}).Process(context.Background(), request()); !errors.Is(err, engine.ErrNoEnginesAvailable) {
		t.Errorf("err = %v, want ErrNoEnginesAvailable", err)
	}
}

// One engine failing among three degrades the result instead of failing it:
// the survivors' output comes back and the failure is surfaced as a note.
func TestParallel_GracefulDegradation(t *testing.T) {
	a := &fakeEngine{name: "a", descs: []model.Description{d(model.TypeLocation, "the lighthouse", 0, 0.8)}}
	b := &fakeEngine{name: "b", err: fmt.Errorf("model endpoint returned 503")}
	c := &fakeEngine{name: "c", descs: []model.Description{d(model.TypeAtmosphere, "salt wind over the rocks", 20, 0.7)}}

	res, err := (&Parallel{}).Process(context.Background(), request(a, b, c))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.EnginesUsed, []string{"a", "c"}) {
		t.Errorf("EnginesUsed = %v, want failed engine excluded", res.EnginesUsed)
	}
	if len(res.Descriptions) != 2 {
		t.Errorf("got %d descriptions, want 2", len(res.Descriptions))
	}
	if len(res.Recommendations) != 1 || !strings.Contains(res.Recommendations[0], "b") {
		t.Errorf("failure should be surfaced in recommendations, got %v", res.Recommendations)
	}
	if res.QualityMetrics["engines_failed"] != 1 {
		t.Errorf("engines_failed = %v", res.QualityMetrics["engines_failed"])
	}
}

func TestParallel_AllEnginesFailed(t *testing.T) {
	a := &fakeEngine{name: "a", err: errors.New("boom")}
	b := &fakeEngine{name: "b", err: errors.New("bust")}

	_, err := (&Parallel{}).Process(context.Background(), request(a, b))
	if !errors.Is(err, engine.ErrAllEnginesFailed) {
		t.Fatalf("err = %v, want ErrAllEnginesFailed", err)
	}
	for _, name := range []string{"a", "b"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should mention engine %s: %v", name, err)
		}
	}
}

// A hung engine is cut off at its own timeout and must not delay the batch
// beyond it. The fast engine's results survive.
func TestParallel_TimeoutIsolation(t *testing.T) {
	fast := &fakeEngine{name: "fast", descs: []model.Description{d(model.TypeLocation, "the lighthouse", 0, 0.8)}}
	hung := &fakeEngine{name: "hung", delay: 5 * time.Second}

	req := request(fast, hung)
	req.Configs["hung"] = config.EngineConfig{Enabled: true, Weight: 1.0, Timeout: config.Duration(50 * time.Millisecond)}

	start := time.Now()
	res, err := (&Parallel{}).Process(context.Background(), req)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatal(err)
	}
	if elapsed > time.Second {
		t.Errorf("batch took %v, a 50ms timeout must not stall it", elapsed)
	}
	if !reflect.DeepEqual(res.EnginesUsed, []string{"fast"}) {
		t.Errorf("EnginesUsed = %v", res.EnginesUsed)
	}

	failed := res.Recommendations
	if len(failed) != 1 || !strings.Contains(failed[0], "hung") {
		t.Errorf("timed-out engine should be reported, got %v", failed)
	}
}

// Cancelling mid-flight hands back the completed engines' output together
// with an error that reports the cancellation, not a timeout or a success.
func TestParallel_CancellationReturnsPartial(t *testing.T) {
	fast := &fakeEngine{name: "fast", descs: []model.Description{d(model.TypeLocation, "the lighthouse", 0, 0.8)}}
	slow := &fakeEngine{name: "slow", delay: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	res, err := (&Parallel{}).Process(ctx, request(fast, slow))

	if !errors.Is(err, engine.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("cancellation must be detectable via errors.Is(err, context.Canceled)")
	}
	if res == nil {
		t.Fatal("partial result expected alongside the cancellation error")
	}
	if !reflect.DeepEqual(res.EnginesUsed, []string{"fast"}) {
		t.Errorf("EnginesUsed = %v, want the completed engine only", res.EnginesUsed)
	}
	if len(res.Descriptions) != 1 {
		t.Errorf("got %d descriptions, want the fast engine's output", len(res.Descriptions))
	}
	if len(res.Recommendations) != 1 || !strings.Contains(res.Recommendations[0], "cancelled") {
		t.Errorf("interrupted engine should be reported as cancelled, got %v", res.Recommendations)
	}
}

func TestSingle_CancellationIsNotAllEnginesFailed(t *testing.T) {
	slow := &fakeEngine{name: "slow", delay: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := (&Single{}).Process(ctx, request(slow))
	if !errors.Is(err, engine.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if errors.Is(err, engine.ErrAllEnginesFailed) {
		t.Error("cancellation must not masquerade as ErrAllEnginesFailed")
	}
}

func TestSequential_GracefulDegradation(t *testing.T) {
	a := &fakeEngine{name: "a", descs: []model.Description{d(model.TypeLocation, "the lighthouse", 0, 0.8)}}
	b := &fakeEngine{name: "b", err: fmt.Errorf("model endpoint returned 503")}
	c := &fakeEngine{name: "c", descs: []model.Description{d(model.TypeAtmosphere, "salt wind over the rocks", 20, 0.7)}}

	res, err := (&Sequential{}).Process(context.Background(), request(a, b, c))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.EnginesUsed, []string{"a", "c"}) {
		t.Errorf("EnginesUsed = %v, want failed engine excluded", res.EnginesUsed)
	}
	if len(res.Descriptions) != 2 {
		t.Errorf("got %d descriptions, want 2", len(res.Descriptions))
	}
	if len(res.Recommendations) != 1 || !strings.Contains(res.Recommendations[0], "b") {
		t.Errorf("failure should be surfaced in recommendations, got %v", res.Recommendations)
	}
}

func TestSequential_AllEnginesFailed(t *testing.T) {
	a := &fakeEngine{name: "a", err: errors.New("boom")}
	b := &fakeEngine{name: "b", err: errors.New("bust")}

	_, err := (&Sequential{}).Process(context.Background(), request(a, b))
	if !errors.Is(err, engine.ErrAllEnginesFailed) {
		t.Fatalf("err = %v, want ErrAllEnginesFailed", err)
	}
}

func TestSequential_RunsInOrder(t *testing.T) {
	var order []string
	mk := func(name string) *fakeEngine {
		e := &fakeEngine{name: name, descs: []model.Description{d(model.TypeLocation, "span from "+name, 0, 0.5)}}
		return e
	}
	a, b, c := mk("a"), mk("b"), mk("c")

	req := request(a, b, c)
	res, err := (&Sequential{}).Process(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	order = res.EnginesUsed
	if !reflect.DeepEqual(order, []string{"a", "b", "c"}) {
		t.Errorf("EnginesUsed = %v, want registration order", order)
	}
}

func TestEnsemble_AppliesConsensus(t *testing.T) {
	agreed := d(model.TypeLocation, "the lighthouse on the black rocks", 0, 0.8)
	lone := d(model.TypeObject, "a coil of tarred rope", 300, 0.9)

	a := &fakeEngine{name: "a", descs: []model.Description{agreed}}
	b := &fakeEngine{name: "b", descs: []model.Description{agreed, lone}}
	c := &fakeEngine{name: "c", descs: []model.Description{agreed}}

	res, err := (&Ensemble{}).Process(context.Background(), request(a, b, c))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Descriptions) != 1 {
		t.Fatalf("got %d descriptions, want the agreed span only", len(res.Descriptions))
	}
	if res.Descriptions[0].Content != agreed.Content {
		t.Errorf("accepted %q", res.Descriptions[0].Content)
	}
	if _, ok := res.QualityMetrics["consensus_rate"]; !ok {
		t.Error("voter metrics should flow into QualityMetrics")
	}
}

// Merging the merged output with itself changes nothing.
func TestDedupMerge_Idempotent(t *testing.T) {
	results := []model.EngineResult{
		{EngineName: "a", Descriptions: []model.Description{
			d(model.TypeLocation, "the lighthouse", 0, 0.8),
			d(model.TypeObject, "a brass lamp", 40, 0.6),
		}},
		{EngineName: "b", Descriptions: []model.Description{
			d(model.TypeLocation, "the lighthouse", 0, 0.5), // duplicate span, lower confidence
		}},
	}

	once := dedupMerge(results)
	twice := dedupMerge([]model.EngineResult{{EngineName: "merged", Descriptions: once}})

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge is not idempotent:\n%+v\nvs\n%+v", once, twice)
	}
	if len(once) != 2 {
		t.Errorf("got %d descriptions, want 2 after dedup", len(once))
	}
	// First occurrence wins.
	for _, desc := range once {
		if desc.Content == "the lighthouse" && desc.ConfidenceScore != 0.8 {
			t.Errorf("duplicate resolution kept confidence %v, want first occurrence 0.8", desc.ConfidenceScore)
		}
	}
}

func TestFactory_CachesSingletons(t *testing.T) {
	f := NewFactory(config.AdaptiveConfig{ShortMaxRunes: 1200, LongMinRunes: 4000, ComplexMin: 120, DialogueWeight: 0.5})

	for _, m := range AllModes {
		first, err := f.Get(m)
		if err != nil {
			t.Fatalf("Get(%s): %v", m, err)
		}
		second, _ := f.Get(m)
		if first != second {
			t.Errorf("Get(%s) returned distinct instances", m)
		}
	}

	if _, err := f.Get("turbo"); !errors.Is(err, engine.ErrInvalidMode) {
		t.Errorf("Get(turbo) = %v, want ErrInvalidMode", err)
	}
}

func TestAdaptive_RoutesShortTextWide(t *testing.T) {
	f := NewFactory(config.AdaptiveConfig{ShortMaxRunes: 1200, LongMinRunes: 4000, ComplexMin: 120, DialogueWeight: 0.5})
	s, err := f.Get(ModeAdaptive)
	if err != nil {
		t.Fatal(err)
	}

	a := &fakeEngine{name: "a", descs: []model.Description{d(model.TypeLocation, "the lighthouse", 0, 0.8)}}
	b := &fakeEngine{name: "b", descs: []model.Description{d(model.TypeAtmosphere, "fog on the water", 10, 0.7)}}

	req := request(a, b) // short text, two engines: parallel route
	res, err := s.Process(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("short text with two engines should fan out, calls a=%d b=%d", a.calls, b.calls)
	}
	if _, ok := res.QualityMetrics["text_runes"]; !ok {
		t.Error("adaptive should annotate the result with the text profile")
	}
}
