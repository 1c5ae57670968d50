package blueprint

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/tautline/taut/internal/graph"
)

func TestLoad_Builtins(t *testing.T) {
	s := NewStore(t.TempDir())
	for _, name := range []string{"passthrough", "generate", "generate_json"} {
		u, err := s.Load(name)
		if err != nil {
			t.Errorf("Load(%s): %v", name, err)
			continue
		}
		if u.Type != graph.UnitBlueprint {
			t.Errorf("%s: type %s", name, u.Type)
		}
		if err := u.Validate(); err != nil {
			t.Errorf("%s: builtin does not validate: %v", name, err)
		}
	}
	if _, err := s.Load("nope"); err == nil {
		t.Error("expected error for unknown blueprint")
	}
}

func TestLoad_FileNameVariants(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	tpl, err := s.Load("passthrough")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		filename string
		name     string
	}{
		{"alpha.json", "alpha"},
		{"beta_blueprint.json", "beta"},
		{"blueprint_gamma.json", "gamma"},
	}
	for _, tt := range tests {
		if err := tpl.SaveFile(filepath.Join(dir, tt.filename)); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Load(tt.name); err != nil {
			t.Errorf("Load(%s) via %s: %v", tt.name, tt.filename, err)
		}
	}

	names := s.List()
	for _, want := range []string{"alpha", "beta", "gamma", "passthrough"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("List missing %s: %v", want, names)
		}
	}
}

func TestInstantiate(t *testing.T) {
	s := NewStore(t.TempDir())

	u, err := s.Instantiate("generate", "summarize reports", map[string]any{
		"prompt":  "Summarize: {input}",
		"tension": 0.9,
	})
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}

	if u.Intent != "summarize reports" {
		t.Errorf("intent: %q", u.Intent)
	}
	if u.Tension != 0.9 {
		t.Errorf("tension: %g", u.Tension)
	}
	if u.Type != graph.UnitComposite {
		t.Errorf("instances should be composite, got %s", u.Type)
	}
	if u.Meta.Version != 1 {
		t.Errorf("version: %d", u.Meta.Version)
	}

	gen := u.GetNode("a1")
	if gen == nil || gen.Args["prompt"] != "Summarize: {input}" {
		t.Errorf("prompt shortcut not applied: %v", gen)
	}

	// the template itself must be untouched
	tpl, _ := s.Load("generate")
	if tpl.GetNode("a1").Args["prompt"] != "{input}" {
		t.Error("instantiation mutated the template")
	}
	if tpl.ID == u.ID {
		t.Error("instance shares the template id")
	}
}

func TestInstantiate_NodeUpdates(t *testing.T) {
	s := NewStore(t.TempDir())

	u, err := s.Instantiate("passthrough", "", map[string]any{
		"nodes": []any{
			map[string]any{"id": "a1", "description": "rewritten", "args": map[string]any{"extra": 1.0}},
			map[string]any{"id": "missing", "description": "ignored"},
		},
	})
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	n := u.GetNode("a1")
	if n.Description != "rewritten" || n.Args["extra"] != 1.0 {
		t.Errorf("node update not applied: %+v", n)
	}
}

func TestInstantiate_TrailingTasks(t *testing.T) {
	s := NewStore(t.TempDir())

	u, err := s.Instantiate("generate", "research in parallel", map[string]any{
		"tasks": []any{"List the risks", "List the benefits"},
	})
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}

	tpl, _ := s.Load("generate")
	if len(u.Nodes) != len(tpl.Nodes)+2 {
		t.Fatalf("nodes: %d, want %d", len(u.Nodes), len(tpl.Nodes)+2)
	}
	if err := u.Validate(); err != nil {
		t.Fatalf("instance with tasks does not validate: %v", err)
	}

	last := tpl.Nodes[len(tpl.Nodes)-1]
	for i, want := range []string{"List the risks", "List the benefits"} {
		id := fmt.Sprintf("t%d", i+1)
		n := u.GetNode(id)
		if n == nil {
			t.Fatalf("task node %s missing", id)
		}
		if n.Op != "generate" || n.Args["prompt"] != want {
			t.Errorf("task node %s: %+v", id, n)
		}
		if n.Input != "$"+last.Output {
			t.Errorf("task node %s input = %v, want chained from %q", id, n.Input, last.Output)
		}
	}

	// both tasks fan out from the same node
	fanned := 0
	for _, e := range u.Edges {
		if e.From == last.ID && (e.To == "t1" || e.To == "t2") {
			fanned++
		}
	}
	if fanned != 2 {
		t.Errorf("fan-out edges: %d, want 2", fanned)
	}

	// the template itself must be untouched
	if len(tpl.Nodes) == len(u.Nodes) {
		t.Error("tasks mutated the template")
	}
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	u, err := s.Instantiate("passthrough", "custom flow", nil)
	if err != nil {
		t.Fatal(err)
	}
	u.Type = graph.UnitBlueprint
	if err := s.Save("custom", u); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "custom.json")); err != nil {
		t.Fatalf("blueprint file missing: %v", err)
	}

	got, err := s.Load("custom")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Intent != "custom flow" {
		t.Errorf("intent: %q", got.Intent)
	}
}
