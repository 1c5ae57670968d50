// Package pool persists units as JSON files grouped into named pools.
// Pools are plain directories, archival is a rename, and every save is
// a whole-record overwrite, so the store stays inspectable with
// ordinary shell tools.
package pool

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tautline/taut/internal/graph"
)

// Store manages unit pools rooted at a data directory:
//
//	<root>/pools/<pool>/<name>.json    pool members
//	<root>/units/<id>.json             standalone units
//	<root>/archive/<pool>/<name>.json  pruned members, never deleted
type Store struct {
	root string
}

// NewStore creates a Store rooted at dir. Directories are created
// lazily on first save.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the data directory the store was created with.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) poolDir(pool string) string {
	return filepath.Join(s.root, "pools", pool)
}

func (s *Store) unitDir() string {
	return filepath.Join(s.root, "units")
}

func (s *Store) archiveDir(pool string) string {
	return filepath.Join(s.root, "archive", pool)
}

// Save writes a unit into a pool under the given member name,
// overwriting any previous record.
func (s *Store) Save(pool, name string, u *graph.Unit) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("saving %s/%s: %w", pool, name, err)
	}
	dir := s.poolDir(pool)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating pool dir: %w", err)
	}
	return u.SaveFile(filepath.Join(dir, name+".json"))
}

// Load reads a pool member by name.
func (s *Store) Load(pool, name string) (*graph.Unit, error) {
	u, err := graph.LoadFile(filepath.Join(s.poolDir(pool), name+".json"))
	if err != nil {
		return nil, fmt.Errorf("loading %s/%s: %w", pool, name, err)
	}
	return u, nil
}

// List returns the member names of a pool, sorted. A missing pool is
// an empty list, not an error.
func (s *Store) List(pool string) ([]string, error) {
	entries, err := os.ReadDir(s.poolDir(pool))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing pool %s: %w", pool, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Pools returns the names of all pools that exist on disk, sorted.
func (s *Store) Pools() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "pools"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing pools: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Archive moves a pool member into the archive tree. Archived units
// are retired from selection but never destroyed.
func (s *Store) Archive(pool, name string) error {
	src := filepath.Join(s.poolDir(pool), name+".json")
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("archiving %s/%s: %w", pool, name, err)
	}
	dir := s.archiveDir(pool)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}
	if err := os.Rename(src, filepath.Join(dir, name+".json")); err != nil {
		return fmt.Errorf("archiving %s/%s: %w", pool, name, err)
	}
	return nil
}

// SaveUnit writes a standalone unit keyed by its id.
func (s *Store) SaveUnit(u *graph.Unit) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("saving unit %s: %w", u.ID, err)
	}
	if err := os.MkdirAll(s.unitDir(), 0o700); err != nil {
		return fmt.Errorf("creating unit dir: %w", err)
	}
	return u.SaveFile(filepath.Join(s.unitDir(), u.ID+".json"))
}

// LoadUnit reads a standalone unit by id.
func (s *Store) LoadUnit(id string) (*graph.Unit, error) {
	u, err := graph.LoadFile(filepath.Join(s.unitDir(), id+".json"))
	if err != nil {
		return nil, fmt.Errorf("loading unit %s: %w", id, err)
	}
	return u, nil
}

// LoadByID finds a unit by id anywhere in the store: the standalone
// unit dir first, then every pool. Used by the interpreter to resolve
// sub-unit references.
func (s *Store) LoadByID(id string) (*graph.Unit, error) {
	if u, err := s.LoadUnit(id); err == nil {
		return u, nil
	}

	pools, err := s.Pools()
	if err != nil {
		return nil, err
	}
	for _, p := range pools {
		names, err := s.List(p)
		if err != nil {
			continue
		}
		for _, name := range names {
			u, err := s.Load(p, name)
			if err != nil {
				continue
			}
			if u.ID == id || name == id {
				return u, nil
			}
		}
	}
	return nil, fmt.Errorf("unit %s not found", id)
}

// Query returns pool members whose intent contains the given substring
// (case-insensitive). An empty query matches everything.
func (s *Store) Query(pool, q string) ([]*graph.Unit, error) {
	names, err := s.List(pool)
	if err != nil {
		return nil, err
	}
	q = strings.ToLower(q)
	var out []*graph.Unit
	for _, name := range names {
		u, err := s.Load(pool, name)
		if err != nil {
			continue
		}
		if q == "" || strings.Contains(strings.ToLower(u.Intent), q) {
			out = append(out, u)
		}
	}
	return out, nil
}
