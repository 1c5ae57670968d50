package memory

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/tautline/taut/internal/gen"
)

func testBook(t *testing.T, gc gen.Client) *Book {
	t.Helper()
	return New(t.TempDir(), gc, nil, Options{})
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSense_FastPath(t *testing.T) {
	b := testBook(t, gen.NewMockClient().WithAvailable(false))

	m, err := b.Create("quantum explanations", nil, []string{"quantum", "entanglement"}, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	other, err := b.Create("unrelated topic", nil, []string{"cooking"}, 0.8)
	if err != nil {
		t.Fatal(err)
	}

	b.Sense(context.Background(), "explain Quantum Entanglement simply")

	if !approx(m.Activation, 0.72) {
		t.Errorf("pattern match activation = %g, want 0.72", m.Activation)
	}
	// no client: unmatched memories idle at tension x 0.1
	if !approx(other.Activation, 0.08) {
		t.Errorf("unmatched activation = %g, want 0.08", other.Activation)
	}
}

func TestSense_BatchRating(t *testing.T) {
	mock := gen.NewMockClient().WithResponses("[0.9, 0.2]")
	b := testBook(t, mock)

	first, _ := b.Create("deploy procedures", nil, nil, 0.5)
	second, _ := b.Create("snack preferences", nil, nil, 0.5)

	b.Sense(context.Background(), "how do I deploy the service")

	if mock.CallCount() != 1 {
		t.Fatalf("expected one batched call, got %d", mock.CallCount())
	}
	if !approx(first.Activation, 0.45) {
		t.Errorf("first activation = %g, want 0.45", first.Activation)
	}
	if !approx(second.Activation, 0.1) {
		t.Errorf("second activation = %g, want 0.1", second.Activation)
	}
}

func TestSense_UnparseableRatings(t *testing.T) {
	b := testBook(t, gen.NewMockClient().WithResponses("I cannot rate these"))

	m, _ := b.Create("anything", nil, nil, 0.8)
	b.Sense(context.Background(), "some situation")

	if !approx(m.Activation, 0.08) {
		t.Errorf("fallback activation = %g, want 0.08", m.Activation)
	}
}

func TestActivate(t *testing.T) {
	b := testBook(t, gen.NewMockClient().WithAvailable(false))

	low, _ := b.Create("low", nil, nil, 0.2)
	for _, intent := range []string{"h1", "h2", "h3", "h4"} {
		if _, err := b.Create(intent, nil, []string{intent}, 0.9); err != nil {
			t.Fatal(err)
		}
	}

	b.Sense(context.Background(), "h1 h2 h3 h4")

	activated, err := b.Activate()
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	// top_k defaults to 3; the low memory is crowded out
	if len(activated) != 3 {
		t.Fatalf("activated %d, want 3", len(activated))
	}
	for _, m := range activated {
		if m == low {
			t.Error("low-activation memory recalled")
		}
		if m.TimesUsed != 1 || m.LastActivated == nil {
			t.Errorf("memory %s not marked used", m.ID)
		}
	}

	// usage survives reload
	b2 := New(b.dir, nil, nil, Options{})
	if _, err := b2.Load(); err != nil {
		t.Fatal(err)
	}
	used := 0
	for _, m := range b2.All() {
		used += m.TimesUsed
	}
	if used != 3 {
		t.Errorf("persisted uses = %d, want 3", used)
	}
}

func TestActivate_DefaultThresholdZero(t *testing.T) {
	b := testBook(t, gen.NewMockClient().WithAvailable(false))

	// no matching pattern, so activation idles at tension x 0.1
	if _, err := b.Create("faint", nil, nil, 0.5); err != nil {
		t.Fatal(err)
	}
	b.Sense(context.Background(), "something unrelated")

	activated, err := b.Activate()
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if len(activated) != 1 {
		t.Fatalf("activated %d, want 1: weak memories still recall by default", len(activated))
	}
	if !approx(activated[0].Activation, 0.05) {
		t.Errorf("activation = %g, want 0.05", activated[0].Activation)
	}
}

func TestActivate_RaisedThreshold(t *testing.T) {
	b := New(t.TempDir(), nil, nil, Options{ActivationThreshold: 0.3, TopK: 3, LearningRate: 0.2})

	if _, err := b.Create("faint", nil, nil, 0.5); err != nil {
		t.Fatal(err)
	}
	b.Sense(context.Background(), "something unrelated")

	activated, err := b.Activate()
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if len(activated) != 0 {
		t.Errorf("activated %d, want 0 above threshold 0.3", len(activated))
	}
}

func TestFeedback_EMA(t *testing.T) {
	b := testBook(t, nil)
	m, _ := b.Create("lesson", nil, nil, 0.8)

	if err := b.Feedback([]*Memory{m}, true); err != nil {
		t.Fatal(err)
	}
	if !approx(m.SuccessRate, 0.6) {
		t.Errorf("rate after success = %g, want 0.6", m.SuccessRate)
	}
	if !approx(m.Tension, 0.72) {
		t.Errorf("tension after success = %g, want 0.72", m.Tension)
	}

	if err := b.Feedback([]*Memory{m}, false); err != nil {
		t.Fatal(err)
	}
	if !approx(m.SuccessRate, 0.48) {
		t.Errorf("rate after failure = %g, want 0.48", m.SuccessRate)
	}
	if !approx(m.Tension, 0.72*1.15) {
		t.Errorf("tension after failure = %g", m.Tension)
	}
}

func TestReinforce_Bounds(t *testing.T) {
	m := &Memory{Tension: 0.06, SuccessRate: 0.5}
	m.Reinforce(true, 0.2)
	if !approx(m.Tension, 0.054) {
		t.Errorf("tension = %g", m.Tension)
	}
	m.Reinforce(true, 0.2)
	if m.Tension != 0.05 {
		t.Errorf("tension floor not applied: %g", m.Tension)
	}

	m.Tension = 0.95
	m.Reinforce(false, 0.2)
	if m.Tension != 1.0 {
		t.Errorf("tension cap not applied: %g", m.Tension)
	}
}

func TestLearn(t *testing.T) {
	mock := gen.NewMockClient().WithResponses(`{
		"intent": "Using analogies for complex topics",
		"lesson": "The gloves analogy lands well",
		"patterns": ["analogy", "explain", "complex"]
	}`)
	b := testBook(t, mock)

	m, err := b.Learn(context.Background(), "explain entanglement", "the analogy worked", true)
	if err != nil {
		t.Fatalf("Learn failed: %v", err)
	}
	if m == nil {
		t.Fatal("no memory created")
	}
	if m.Intent != "Using analogies for complex topics" {
		t.Errorf("intent: %q", m.Intent)
	}
	if len(m.SensePatterns) != 3 {
		t.Errorf("patterns: %v", m.SensePatterns)
	}
	if m.Tension != 0.8 {
		t.Errorf("new memory tension = %g, want 0.8", m.Tension)
	}
	if m.Content["was_successful"] != true {
		t.Errorf("content: %v", m.Content)
	}

	if _, err := os.Stat(filepath.Join(b.dir, m.ID+".json")); err != nil {
		t.Errorf("memory not persisted: %v", err)
	}
}

func TestLearn_UnparseableResponse(t *testing.T) {
	b := testBook(t, gen.NewMockClient().WithResponses("no lesson here"))

	m, err := b.Learn(context.Background(), "task", "result", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != nil {
		t.Errorf("expected nil memory, got %+v", m)
	}
	if b.Len() != 0 {
		t.Errorf("population grew on failed extraction: %d", b.Len())
	}
}

func TestLearn_RepairsMissingFields(t *testing.T) {
	b := testBook(t, gen.NewMockClient().WithResponses(`{"patterns": "one, two"}`))

	m, err := b.Learn(context.Background(), "a task", "a result", false)
	if err != nil || m == nil {
		t.Fatalf("Learn: m=%v err=%v", m, err)
	}
	if m.Intent != "Lesson from: a task" {
		t.Errorf("intent: %q", m.Intent)
	}
	if m.Content["lesson"] != "Task failed: a result" {
		t.Errorf("lesson: %q", m.Content["lesson"])
	}
	if len(m.SensePatterns) != 2 || m.SensePatterns[0] != "one" {
		t.Errorf("comma patterns: %v", m.SensePatterns)
	}
}

func TestPrune(t *testing.T) {
	b := testBook(t, nil)

	stale, _ := b.Create("slack and failing", nil, nil, 0.01)
	stale.SuccessRate = 0.1
	if err := b.save(stale); err != nil {
		t.Fatal(err)
	}
	tense, _ := b.Create("tense but failing", nil, nil, 0.9)
	tense.SuccessRate = 0.1
	if err := b.save(tense); err != nil {
		t.Fatal(err)
	}
	proven, _ := b.Create("slack but proven", nil, nil, 0.01)
	proven.SuccessRate = 0.9
	if err := b.save(proven); err != nil {
		t.Fatal(err)
	}
	// fresh memories keep the 0.5 default rate and are never pruned
	fresh, _ := b.Create("slack but untried", nil, nil, 0.04)

	removed, err := b.Prune()
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed %d, want 1", removed)
	}
	if b.Len() != 3 {
		t.Errorf("population: %d", b.Len())
	}
	if _, err := os.Stat(filepath.Join(b.dir, stale.ID+".json")); !os.IsNotExist(err) {
		t.Error("pruned memory still on disk")
	}
	for _, m := range []*Memory{tense, proven, fresh} {
		if _, err := os.Stat(filepath.Join(b.dir, m.ID+".json")); err != nil {
			t.Errorf("memory %q deleted", m.Intent)
		}
	}
}

func TestQueriesAndStats(t *testing.T) {
	b := testBook(t, nil)
	b.Create("deploy the service", nil, nil, 0.9)
	b.Create("deploy the docs", nil, nil, 0.4)
	b.Create("write release notes", nil, nil, 0.6)

	if got := len(b.ByTension(0.5)); got != 2 {
		t.Errorf("ByTension(0.5): %d, want 2", got)
	}
	if got := len(b.ByIntent("DEPLOY")); got != 2 {
		t.Errorf("ByIntent: %d, want 2", got)
	}

	s := b.Summary()
	if s.Count != 3 || !approx(s.MaxTension, 0.9) || !approx(s.MinTension, 0.4) {
		t.Errorf("stats: %+v", s)
	}
	if !approx(s.AvgTension, (0.9+0.4+0.6)/3) {
		t.Errorf("avg tension: %g", s.AvgTension)
	}

	all := b.All()
	if len(all) != 3 || all[0].Tension != 0.9 {
		t.Errorf("All not sorted by tension: %+v", all)
	}
}

func TestSimilar_RequiresEmbedder(t *testing.T) {
	b := testBook(t, gen.NewMockClient())
	b.Create("anything", nil, nil, 0.5)

	out, err := b.Similar(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != nil {
		t.Errorf("expected nil without an embedder, got %v", out)
	}
}
