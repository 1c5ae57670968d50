// Package blueprint instantiates units from reusable templates. A
// blueprint is an ordinary unit record with type "blueprint"; stamping
// one out deep-copies it, assigns a fresh identity, and applies a
// bounded set of customizations.
package blueprint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tautline/taut/internal/graph"
)

// Store loads blueprints from a directory, falling back to the builtin
// set, so instantiation works against an empty data dir.
type Store struct {
	dir      string
	builtins map[string]*graph.Unit
}

// NewStore creates a Store over the given blueprint directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir, builtins: builtinBlueprints()}
}

// Load finds a blueprint by name. On disk it tries name.json,
// name_blueprint.json, and blueprint_name.json in that order; builtins
// serve as the final fallback.
func (s *Store) Load(name string) (*graph.Unit, error) {
	patterns := []string{
		name + ".json",
		name + "_blueprint.json",
		"blueprint_" + name + ".json",
	}
	for _, p := range patterns {
		path := filepath.Join(s.dir, p)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		u, err := graph.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading blueprint %s: %w", name, err)
		}
		return u, nil
	}
	if u, ok := s.builtins[name]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("blueprint not found: %s", name)
}

// List returns every available blueprint name, on-disk and builtin,
// deduplicated and sorted.
func (s *Store) List() []string {
	seen := make(map[string]bool)
	for name := range s.builtins {
		seen[name] = true
	}
	if entries, err := os.ReadDir(s.dir); err == nil {
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			name := strings.TrimSuffix(e.Name(), ".json")
			name = strings.TrimSuffix(name, "_blueprint")
			name = strings.TrimPrefix(name, "blueprint_")
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instantiate stamps a unit out of a blueprint: deep copy, fresh id
// and timestamps, optional intent override, then customizations. The
// result is validated before it is returned.
//
// Supported customizations:
//
//	"nodes"      []any of per-node field updates, matched by id
//	"prompt"     string, rewrites the first generate node's prompt
//	"tasks"      list of prompts, appended as parallel task nodes
//	             fanned out from the last node
//	"tension"    float
//	"importance" float
//	"type"       string unit type
func (s *Store) Instantiate(name, intent string, custom map[string]any) (*graph.Unit, error) {
	tpl, err := s.Load(name)
	if err != nil {
		return nil, err
	}

	u, err := deepCopy(tpl)
	if err != nil {
		return nil, fmt.Errorf("copying blueprint %s: %w", name, err)
	}

	now := time.Now().UTC()
	u.ID = graph.NewID()
	u.Type = graph.UnitComposite
	u.Meta = graph.Meta{CreatedAt: now, UpdatedAt: now, Version: 1}
	if intent != "" {
		u.Intent = intent
	}

	for key, value := range custom {
		switch key {
		case "nodes":
			applyNodeUpdates(u, value)
		case "prompt":
			if prompt, ok := value.(string); ok {
				setFirstGeneratePrompt(u, prompt)
			}
		case "tasks":
			appendTaskNodes(u, value)
		case "tension":
			if f, ok := asFloat(value); ok {
				u.Tension = f
			}
		case "importance":
			if f, ok := asFloat(value); ok {
				u.Importance = f
			}
		case "type":
			if t, ok := value.(string); ok {
				u.Type = graph.UnitType(t)
			}
		}
	}

	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("instantiating blueprint %s: %w", name, err)
	}
	return u, nil
}

// Save writes a unit into the blueprint directory under the plain
// name.json pattern.
func (s *Store) Save(name string, u *graph.Unit) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("saving blueprint %s: %w", name, err)
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating blueprint dir: %w", err)
	}
	return u.SaveFile(filepath.Join(s.dir, name+".json"))
}

func deepCopy(u *graph.Unit) (*graph.Unit, error) {
	data, err := u.Encode()
	if err != nil {
		return nil, err
	}
	return graph.Decode(data)
}

// applyNodeUpdates merges loose per-node updates into matching nodes.
func applyNodeUpdates(u *graph.Unit, value any) {
	updates, ok := value.([]any)
	if !ok {
		return
	}
	for _, item := range updates {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := m["id"].(string)
		node := u.GetNode(id)
		if node == nil {
			continue
		}
		if v, ok := m["op"].(string); ok {
			node.Op = v
		}
		if v, ok := m["description"].(string); ok {
			node.Description = v
		}
		if v, ok := m["phase"].(string); ok {
			node.Phase = graph.Phase(v)
		}
		if v, ok := m["input"]; ok {
			node.Input = v
		}
		if v, ok := m["output"].(string); ok {
			node.Output = v
		}
		if v, ok := m["args"].(map[string]any); ok {
			if node.Args == nil {
				node.Args = make(map[string]any, len(v))
			}
			for k, val := range v {
				node.Args[k] = val
			}
		}
	}
}

// appendTaskNodes adds one trailing generate node per task prompt,
// each edged from the current last node so they fan out in parallel.
// Node ids and outputs stay unique, keeping the unit valid.
func appendTaskNodes(u *graph.Unit, value any) {
	var prompts []string
	switch v := value.(type) {
	case []string:
		prompts = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				prompts = append(prompts, s)
			}
		}
	}
	if len(prompts) == 0 || len(u.Nodes) == 0 {
		return
	}

	last := u.Nodes[len(u.Nodes)-1]
	var input any
	if last.Output != "" {
		input = "$" + last.Output
	}

	n := 1
	for _, prompt := range prompts {
		var id string
		for {
			id = fmt.Sprintf("t%d", n)
			n++
			if u.GetNode(id) == nil {
				break
			}
		}
		u.Nodes = append(u.Nodes, graph.Node{
			ID:          id,
			Type:        graph.NodeProcess,
			Phase:       last.Phase,
			Description: prompt,
			Op:          "generate",
			Input:       input,
			Args:        map[string]any{"prompt": prompt},
			Output:      id,
		})
		u.Edges = append(u.Edges, graph.Edge{From: last.ID, To: id})
	}
}

func setFirstGeneratePrompt(u *graph.Unit, prompt string) {
	for i := range u.Nodes {
		if u.Nodes[i].Op == "generate" {
			if u.Nodes[i].Args == nil {
				u.Nodes[i].Args = make(map[string]any, 1)
			}
			u.Nodes[i].Args["prompt"] = prompt
			return
		}
	}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
