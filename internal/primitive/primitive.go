// Package primitive holds the builtin operations units dispatch to.
// These are the only real code in the system; everything above them is
// data. The registry is built explicitly at construction with its
// collaborators injected, so there is no package-level state.
package primitive

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/tautline/taut/internal/gen"
	"github.com/tautline/taut/internal/graph"
	"github.com/tautline/taut/internal/tension"
)

// Func is a primitive operation. input is the node's resolved input,
// args the node's static arguments, vars the run's variable bindings.
// Funcs that only transform data ignore ctx.
type Func func(ctx context.Context, input any, args, vars map[string]any) (any, error)

// UnitStore is the persistence surface the unit primitives need.
type UnitStore interface {
	LoadByID(id string) (*graph.Unit, error)
	SaveUnit(u *graph.Unit) error
	Query(pool, q string) ([]*graph.Unit, error)
}

// Deps carries the collaborators injected into the registry. Nil
// fields degrade: generate falls back to the static client, unit
// primitives report an error value, log falls back to slog.Default.
type Deps struct {
	Gen     gen.Client
	Units   UnitStore
	Tension tension.Config
	Log     *slog.Logger
}

// Registry maps operation names to Funcs.
type Registry struct {
	funcs map[string]Func
	deps  Deps
}

// New builds a registry with every builtin registered against the
// given collaborators.
func New(deps Deps) *Registry {
	if deps.Gen == nil {
		deps.Gen = gen.NewStaticClient()
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Tension == (tension.Config{}) {
		deps.Tension = tension.DefaultConfig()
	}

	r := &Registry{funcs: make(map[string]Func), deps: deps}

	// data
	r.Register("get", opGet)
	r.Register("set", opSet)
	r.Register("merge", opMerge)
	r.Register("filter", opFilter)
	r.Register("map", opMap)
	r.Register("first", opFirst)
	r.Register("sort", opSort)
	r.Register("diff", opDiff)

	// control flow
	r.Register("if", opIf)
	r.Register("loop", opLoop)
	r.Register("branch", opBranch)

	// units
	r.Register("load_unit", r.opLoadUnit)
	r.Register("save_unit", r.opSaveUnit)
	r.Register("query_units", r.opQueryUnits)
	r.Register("new_unit", opNewUnit)
	r.Register("update_unit", opUpdateUnit)

	// generation
	r.Register("generate", r.opGenerate)
	r.Register("parse_json", opParseJSON)
	r.Register("validate", opValidate)

	// i/o
	r.Register("emit", opEmit)
	r.Register("log", r.opLog)

	// tension
	r.Register("calc_tension", r.opCalcTension)
	r.Register("propagate_tension", r.opPropagateTension)
	r.Register("highest_tension", opHighestTension)

	return r
}

// Register adds or replaces a primitive.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Get returns the primitive with the given name.
func (r *Registry) Get(name string) (Func, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("unknown primitive: %s", name)
	}
	return fn, nil
}

// Names lists every registered primitive, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
