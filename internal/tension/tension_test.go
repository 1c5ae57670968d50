package tension

import (
	"math"
	"testing"
	"time"

	"github.com/tautline/taut/internal/graph"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculate(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name                                    string
		importance, urgency, unresolved, block float64
		want                                    float64
	}{
		{"all zero", 0, 0, 0, 0, 0},
		{"all one", 1, 1, 1, 1, 1},
		{"all half", 0.5, 0.5, 0.5, 0.5, 0.5},
		{"importance only", 1, 0, 0, 0, 0.3},
		{"blocking only", 0, 0, 0, 1, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.importance, tt.urgency, tt.unresolved, tt.block, cfg)
			if !approx(got, tt.want) {
				t.Errorf("got %g, want %g", got, tt.want)
			}
		})
	}
}

func TestCalculate_Clamped(t *testing.T) {
	cfg := Config{ImportanceWeight: 2, UrgencyWeight: 2, UnresolvedWeight: 2, BlockingWeight: 2}
	if got := Calculate(1, 1, 1, 1, cfg); got != 1 {
		t.Errorf("expected clamp to 1, got %g", got)
	}
	cfg.ImportanceWeight = -2
	if got := Calculate(1, 0, 0, 0, cfg); got != 0 {
		t.Errorf("expected clamp to 0, got %g", got)
	}
}

func TestUrgency(t *testing.T) {
	horizon := 24 * time.Hour

	if got := Urgency(nil, horizon); !approx(got, 0.5) {
		t.Errorf("no deadline: got %g, want 0.5", got)
	}

	past := time.Now().Add(-time.Hour)
	if got := Urgency(&past, horizon); got != 1.0 {
		t.Errorf("past due: got %g, want 1.0", got)
	}

	far := time.Now().Add(48 * time.Hour)
	if got := Urgency(&far, horizon); got != 0.0 {
		t.Errorf("beyond horizon: got %g, want 0.0", got)
	}

	half := time.Now().Add(12 * time.Hour)
	got := Urgency(&half, horizon)
	if got < 0.45 || got > 0.55 {
		t.Errorf("half horizon: got %g, want ~0.5", got)
	}
}

func TestUnresolvedRatio(t *testing.T) {
	if got := UnresolvedRatio(nil); got != 0 {
		t.Errorf("empty: got %g, want 0", got)
	}
	nodes := []graph.Node{
		{ID: "a", State: graph.StateCompleted},
		{ID: "b", State: graph.StatePending},
		{ID: "c", State: graph.StateFailed},
		{ID: "d", State: graph.StateCompleted},
	}
	if got := UnresolvedRatio(nodes); !approx(got, 0.5) {
		t.Errorf("got %g, want 0.5", got)
	}
}

func TestBlockingFactor(t *testing.T) {
	if got := BlockingFactor(0, 0.2); got != 0 {
		t.Errorf("zero blocked: got %g", got)
	}
	if got := BlockingFactor(2, 0.2); !approx(got, 0.4) {
		t.Errorf("two blocked: got %g, want 0.4", got)
	}
	if got := BlockingFactor(10, 0.2); got != 1 {
		t.Errorf("cap: got %g, want 1", got)
	}
}

func TestPropagateUp(t *testing.T) {
	cfg := DefaultConfig()

	if got := PropagateUp(nil, cfg); !approx(got, 0.5) {
		t.Errorf("no children: got %g, want 0.5", got)
	}

	// max 0.9, avg 0.5 -> 0.9*0.7 + 0.5*0.3 = 0.78
	children := []float64{0.9, 0.5, 0.1}
	want := 0.78
	if got := PropagateUp(children, cfg); !approx(got, want) {
		t.Errorf("got %g, want %g", got, want)
	}

	// order must not matter
	shuffled := []float64{0.1, 0.9, 0.5}
	if got := PropagateUp(shuffled, cfg); !approx(got, want) {
		t.Errorf("order dependence: got %g, want %g", got, want)
	}
}

func TestInheritImportance(t *testing.T) {
	cfg := DefaultConfig()
	if got := InheritImportance(0.8, nil, cfg); !approx(got, 0.72) {
		t.Errorf("decay: got %g, want 0.72", got)
	}
	explicit := 0.3
	if got := InheritImportance(0.8, &explicit, cfg); got != 0.3 {
		t.Errorf("explicit: got %g, want 0.3", got)
	}
}

func mustUnit(t *testing.T, intent string) *graph.Unit {
	t.Helper()
	u, err := graph.New(intent, graph.UnitComposite, []graph.Node{
		{ID: "n1", Phase: graph.PhaseAct, Op: "emit"},
	}, nil)
	if err != nil {
		t.Fatalf("building unit: %v", err)
	}
	return u
}

func TestUpdateTree(t *testing.T) {
	cfg := DefaultConfig()

	root := mustUnit(t, "root")
	root.Importance = 1.0
	childA := mustUnit(t, "child a")
	childB := mustUnit(t, "child b")
	childB.Nodes[0].State = graph.StateCompleted

	tree := &TreeNode{
		Unit:     root,
		Explicit: true,
		Children: []*TreeNode{
			{Unit: childA},
			{Unit: childB},
		},
	}
	UpdateTree(tree, cfg)

	if !approx(childA.Importance, 0.9) {
		t.Errorf("child importance: got %g, want 0.9", childA.Importance)
	}
	if root.Importance != 1.0 {
		t.Errorf("explicit root importance overwritten: %g", root.Importance)
	}

	// childA: imp 0.9, urgency 0.5, unresolved 1, blocking 0
	//   = 0.27 + 0.15 + 0.2 = 0.62
	// childB: same importance but resolved -> 0.42
	if !approx(childA.Tension, 0.62) {
		t.Errorf("childA tension: got %g, want 0.62", childA.Tension)
	}
	if !approx(childB.Tension, 0.42) {
		t.Errorf("childB tension: got %g, want 0.42", childB.Tension)
	}

	// root blends children: 0.62*0.7 + 0.52*0.3 = 0.59
	if !approx(root.Tension, 0.59) {
		t.Errorf("root tension: got %g, want 0.59", root.Tension)
	}
}

func TestManager(t *testing.T) {
	m := NewManager(DefaultConfig())

	a := mustUnit(t, "alpha")
	a.ID = "unit_a"
	b := mustUnit(t, "beta")
	b.ID = "unit_b"
	b.Importance = 1.0

	m.Register(a)
	m.Register(b)

	if m.Len() != 2 {
		t.Fatalf("expected 2 units, got %d", m.Len())
	}
	if got := m.Highest(); got == nil || got.ID != "unit_b" {
		t.Errorf("expected unit_b highest, got %v", got)
	}

	hot := m.AboveThreshold(0.0)
	if len(hot) != 2 || hot[0].ID != "unit_b" {
		t.Errorf("AboveThreshold ordering wrong: %v", hot)
	}
	if got := m.AboveThreshold(0.99); len(got) != 0 {
		t.Errorf("expected none above 0.99, got %d", len(got))
	}

	if !m.Resolve("unit_a") {
		t.Error("Resolve on known id returned false")
	}
	if a.Tension != 0.1 {
		t.Errorf("resolved tension: got %g, want 0.1", a.Tension)
	}
	if m.Resolve("missing") {
		t.Error("Resolve on unknown id returned true")
	}

	m.Unregister("unit_a")
	if m.Get("unit_a") != nil {
		t.Error("unit_a still registered after Unregister")
	}
}
