package seed

import (
	"testing"

	"github.com/tautline/taut/internal/pool"
)

func TestSeed_EmptyStore(t *testing.T) {
	pools := pool.NewStore(t.TempDir())
	seeder := NewSeeder(pools)

	result, err := seeder.Seed()
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	if result.Total != 6 {
		t.Errorf("Total = %d, want 6", result.Total)
	}
	if len(result.Added) != 6 {
		t.Errorf("Added = %d, want 6", len(result.Added))
	}
	if len(result.Skipped) != 0 {
		t.Errorf("Skipped = %d, want 0", len(result.Skipped))
	}

	for _, p := range []string{"sense", "act", "feedback"} {
		names, err := pools.List(p)
		if err != nil {
			t.Fatal(err)
		}
		if len(names) != 2 {
			t.Errorf("pool %s has %d members, want 2", p, len(names))
		}
		for _, name := range names {
			u, err := pools.Load(p, name)
			if err != nil {
				t.Errorf("Load(%s/%s): %v", p, name, err)
				continue
			}
			if err := u.Validate(); err != nil {
				t.Errorf("%s/%s does not validate: %v", p, name, err)
			}
		}
	}
}

func TestSeed_Idempotent(t *testing.T) {
	pools := pool.NewStore(t.TempDir())
	seeder := NewSeeder(pools)

	if _, err := seeder.Seed(); err != nil {
		t.Fatalf("first Seed() error = %v", err)
	}

	first, err := pools.Load("act", "generate_response")
	if err != nil {
		t.Fatal(err)
	}

	result, err := seeder.Seed()
	if err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}
	if len(result.Added) != 0 {
		t.Errorf("Added = %d, want 0 (idempotent)", len(result.Added))
	}
	if len(result.Skipped) != 6 {
		t.Errorf("Skipped = %d, want 6 (idempotent)", len(result.Skipped))
	}

	// existing members keep their identity
	second, err := pools.Load("act", "generate_response")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Error("reseeding replaced an existing member")
	}
}
