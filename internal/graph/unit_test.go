package graph

import (
	"testing"
)

func validNodes() []Node {
	return []Node{
		{ID: "s1", Type: NodeInput, Phase: PhaseSense, Op: "get", Args: map[string]any{"key": "input"}, Output: "input"},
		{ID: "a1", Type: NodeProcess, Phase: PhaseAct, Op: "emit", Input: "$input", Output: "result"},
		{ID: "f1", Type: NodeOutput, Phase: PhaseFeedback, Op: "emit", Input: "$result"},
	}
}

func TestNew_Valid(t *testing.T) {
	u, err := New("echo the input", UnitComposite, validNodes(), []Edge{{From: "s1", To: "a1"}, {From: "a1", To: "f1"}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if u.ID == "" {
		t.Error("expected generated id")
	}
	if u.Tension != 0.8 || u.Importance != 0.5 {
		t.Errorf("unexpected defaults: tension=%g importance=%g", u.Tension, u.Importance)
	}
	if u.Meta.Version != 1 {
		t.Errorf("expected version 1, got %d", u.Meta.Version)
	}
}

func TestValidate_Invariants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Unit)
	}{
		{"empty id", func(u *Unit) { u.ID = "" }},
		{"empty intent", func(u *Unit) { u.Intent = "" }},
		{"no nodes", func(u *Unit) { u.Nodes = nil }},
		{"tension above range", func(u *Unit) { u.Tension = 1.5 }},
		{"tension below range", func(u *Unit) { u.Tension = -0.1 }},
		{"importance out of range", func(u *Unit) { u.Importance = 2 }},
		{"duplicate node id", func(u *Unit) { u.Nodes = append(u.Nodes, Node{ID: "s1", Op: "emit"}) }},
		{"node missing op and sub_unit", func(u *Unit) { u.Nodes[0].Op = "" }},
		{"node with op and sub_unit", func(u *Unit) { u.Nodes[0].SubUnit = "other" }},
		{"dangling edge from", func(u *Unit) { u.Edges = append(u.Edges, Edge{From: "nope", To: "a1"}) }},
		{"dangling edge to", func(u *Unit) { u.Edges = append(u.Edges, Edge{From: "s1", To: "nope"}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := New("test unit", UnitComposite, validNodes(), []Edge{{From: "s1", To: "a1"}})
			if err != nil {
				t.Fatalf("setup failed: %v", err)
			}
			tt.mutate(u)
			err = u.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if _, ok := err.(*ValidationError); !ok {
				t.Errorf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	u, err := New("round trip", UnitAct, validNodes(), []Edge{{From: "s1", To: "a1"}, {From: "a1", To: "f1"}})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	u.Profile.Conflicts = []string{"c1"}
	u.Meta.ParentID = "parent_1"

	data, err := u.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if got.ID != u.ID || got.Intent != u.Intent {
		t.Errorf("identity mismatch: got %s/%q", got.ID, got.Intent)
	}
	if len(got.Nodes) != len(u.Nodes) || len(got.Edges) != len(u.Edges) {
		t.Errorf("shape mismatch: %d nodes %d edges", len(got.Nodes), len(got.Edges))
	}
	if got.Meta.ParentID != "parent_1" {
		t.Errorf("metadata not preserved: parent=%q", got.Meta.ParentID)
	}
	if len(got.Profile.Conflicts) != 1 {
		t.Error("tension profile not preserved")
	}
}

func TestNodesByPhase_StableOrder(t *testing.T) {
	nodes := []Node{
		{ID: "a1", Phase: PhaseAct, Op: "emit"},
		{ID: "s1", Phase: PhaseSense, Op: "emit"},
		{ID: "a2", Phase: PhaseAct, Op: "emit"},
		{ID: "a3", Phase: PhaseAct, Op: "emit"},
	}
	u, err := New("phases", UnitComposite, nodes, nil)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	got := u.NodesByPhase(PhaseAct)
	want := []string{"a1", "a2", "a3"}
	if len(got) != len(want) {
		t.Fatalf("expected %d act nodes, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
	if fb := u.NodesByPhase(PhaseFeedback); len(fb) != 0 {
		t.Errorf("expected no feedback nodes, got %d", len(fb))
	}
}

func TestGetNode(t *testing.T) {
	u, err := New("lookup", UnitComposite, validNodes(), nil)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if n := u.GetNode("a1"); n == nil || n.ID != "a1" {
		t.Error("expected to find node a1")
	}
	if n := u.GetNode("missing"); n != nil {
		t.Error("expected nil for unknown node")
	}
}

func TestResolve(t *testing.T) {
	u, err := New("resolve", UnitComposite, validNodes(), nil)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	u.Resolve()
	if u.Tension != 0.1 {
		t.Errorf("expected tension 0.1, got %g", u.Tension)
	}
	for _, n := range u.Nodes {
		if n.State != StateCompleted {
			t.Errorf("node %s not completed", n.ID)
		}
	}
}

func TestSaveLoadFile(t *testing.T) {
	u, err := New("file round trip", UnitComposite, validNodes(), nil)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	path := t.TempDir() + "/unit.json"
	if err := u.SaveFile(path); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("expected id %s, got %s", u.ID, got.ID)
	}
}
