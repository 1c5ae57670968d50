package pool

import (
	"testing"

	"github.com/tautline/taut/internal/graph"
)

func testUnit(t *testing.T, intent string) *graph.Unit {
	t.Helper()
	u, err := graph.New(intent, graph.UnitComposite, []graph.Node{
		{ID: "n1", Phase: graph.PhaseAct, Op: "emit", Input: "ok"},
	}, nil)
	if err != nil {
		t.Fatalf("building unit: %v", err)
	}
	return u
}

func TestSaveLoadList(t *testing.T) {
	s := NewStore(t.TempDir())

	a := testUnit(t, "summarize text")
	b := testUnit(t, "classify text")
	if err := s.Save("tasks", "summarize", a); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save("tasks", "classify", b); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	names, err := s.List("tasks")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 2 || names[0] != "classify" || names[1] != "summarize" {
		t.Errorf("expected sorted [classify summarize], got %v", names)
	}

	got, err := s.Load("tasks", "summarize")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("expected id %s, got %s", a.ID, got.ID)
	}

	if names, _ := s.List("empty"); names != nil {
		t.Errorf("missing pool should list empty, got %v", names)
	}

	pools, err := s.Pools()
	if err != nil {
		t.Fatalf("Pools failed: %v", err)
	}
	if len(pools) != 1 || pools[0] != "tasks" {
		t.Errorf("expected [tasks], got %v", pools)
	}
}

func TestArchive(t *testing.T) {
	s := NewStore(t.TempDir())
	u := testUnit(t, "doomed")
	if err := s.Save("tasks", "doomed", u); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := s.Archive("tasks", "doomed"); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	if _, err := s.Load("tasks", "doomed"); err == nil {
		t.Error("archived member still loadable from pool")
	}
	got, err := graph.LoadFile(s.archiveDir("tasks") + "/doomed.json")
	if err != nil {
		t.Fatalf("archived record missing: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("archived record mismatch: %s", got.ID)
	}

	if err := s.Archive("tasks", "missing"); err == nil {
		t.Error("expected error archiving missing member")
	}
}

func TestLoadByID(t *testing.T) {
	s := NewStore(t.TempDir())

	standalone := testUnit(t, "standalone")
	if err := s.SaveUnit(standalone); err != nil {
		t.Fatalf("SaveUnit failed: %v", err)
	}
	member := testUnit(t, "pool member")
	if err := s.Save("tasks", "member", member); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if got, err := s.LoadByID(standalone.ID); err != nil || got.Intent != "standalone" {
		t.Errorf("standalone lookup: %v, %v", got, err)
	}
	if got, err := s.LoadByID(member.ID); err != nil || got.Intent != "pool member" {
		t.Errorf("pool id lookup: %v, %v", got, err)
	}
	if got, err := s.LoadByID("member"); err != nil || got.Intent != "pool member" {
		t.Errorf("pool name lookup: %v, %v", got, err)
	}
	if _, err := s.LoadByID("nope"); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestQuery(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Save("tasks", "a", testUnit(t, "Summarize the daily report")); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("tasks", "b", testUnit(t, "classify incoming mail")); err != nil {
		t.Fatal(err)
	}

	got, err := s.Query("tasks", "summarize")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 || got[0].Intent != "Summarize the daily report" {
		t.Errorf("case-insensitive match failed: %v", got)
	}

	all, _ := s.Query("tasks", "")
	if len(all) != 2 {
		t.Errorf("empty query should match all, got %d", len(all))
	}
}
