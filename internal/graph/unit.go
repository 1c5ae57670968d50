// Package graph defines the unit data model: a small program expressed
// entirely as data (nodes, edges, drive parameters) that the interpreter
// executes and the evolution engine rewrites.
package graph

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// UnitType categorizes what role a unit plays.
type UnitType string

const (
	UnitSense     UnitType = "sense"
	UnitAct       UnitType = "act"
	UnitFeedback  UnitType = "feedback"
	UnitComposite UnitType = "composite"
	UnitBlueprint UnitType = "blueprint"
)

// NodeType categorizes a node's position in the data flow.
type NodeType string

const (
	NodeInput   NodeType = "input"
	NodeProcess NodeType = "process"
	NodeOutput  NodeType = "output"
)

// Phase is an advisory grouping tag. It is not an ordering constraint,
// but it is the deterministic fallback order when edges form a cycle.
type Phase string

const (
	PhaseSense    Phase = "sense"
	PhaseAct      Phase = "act"
	PhaseFeedback Phase = "feedback"
)

// NodeState tracks a node's run state within one interpreter run.
type NodeState string

const (
	StatePending   NodeState = "pending"
	StateActive    NodeState = "active"
	StateCompleted NodeState = "completed"
	StateFailed    NodeState = "failed"
)

// Node is one step in a unit. It invokes either a registered primitive
// (Op) or a nested unit (SubUnit) — exactly one of the two must be set.
type Node struct {
	ID          string         `json:"id" yaml:"id"`
	Type        NodeType       `json:"type" yaml:"type"`
	Phase       Phase          `json:"phase" yaml:"phase"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`

	// Op names the primitive to invoke. Empty when SubUnit is set.
	Op string `json:"op,omitempty" yaml:"op,omitempty"`

	// SubUnit references another unit by id; the interpreter recurses
	// into it instead of calling a primitive.
	SubUnit string `json:"sub_unit,omitempty" yaml:"sub_unit,omitempty"`

	// Input is a literal value or a "$name" variable reference. A list
	// is resolved element-wise.
	Input any `json:"input,omitempty" yaml:"input,omitempty"`

	// Output is the context variable the node's result is bound to.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	Args    map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
	Tension float64        `json:"tension" yaml:"tension"`
	State   NodeState      `json:"state" yaml:"state"`
}

// Edge is a directed dependency between two nodes of the same unit.
// Condition is advisory; the scheduler does not evaluate it.
type Edge struct {
	From      string `json:"from" yaml:"from"`
	To        string `json:"to" yaml:"to"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// TensionProfile carries tension-related metadata for a unit.
type TensionProfile struct {
	MaxTension float64  `json:"max_tension" yaml:"max_tension"`
	Conflicts  []string `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Barriers   []string `json:"barriers,omitempty" yaml:"barriers,omitempty"`
	Desires    []string `json:"desires,omitempty" yaml:"desires,omitempty"`

	// BlockedBy lists ids this unit is waiting on; its length feeds the
	// blocking factor of the tension calculation.
	BlockedBy []string `json:"blocked_by,omitempty" yaml:"blocked_by,omitempty"`
}

// Meta records lineage and bookkeeping for a unit.
type Meta struct {
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" yaml:"updated_at"`
	Version   int        `json:"version" yaml:"version"`
	ParentID  string     `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Deadline  *time.Time `json:"deadline,omitempty" yaml:"deadline,omitempty"`
}

// Unit is the top-level composite: a graph of nodes with a scalar drive
// value (tension) and importance, both in [0, 1].
type Unit struct {
	ID         string         `json:"id" yaml:"id"`
	Type       UnitType       `json:"type" yaml:"type"`
	Intent     string         `json:"intent" yaml:"intent"`
	Phases     []Phase        `json:"phases,omitempty" yaml:"phases,omitempty"`
	Tension    float64        `json:"tension" yaml:"tension"`
	Importance float64        `json:"importance" yaml:"importance"`
	Nodes      []Node         `json:"nodes" yaml:"nodes"`
	Edges      []Edge         `json:"edges" yaml:"edges"`
	Profile    TensionProfile `json:"tension_profile" yaml:"tension_profile"`
	Meta       Meta           `json:"metadata" yaml:"metadata"`
}

// ValidationError describes a violated unit invariant. Validation errors
// are fatal to construction and never silently repaired.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid unit: " + e.Msg
	}
	return fmt.Sprintf("invalid unit: %s: %s", e.Field, e.Msg)
}

// New creates a validated unit. The caller supplies at least one node;
// tension and importance default to 0.8/0.5 when a zero unit is wanted
// use NewID plus a literal instead.
func New(intent string, typ UnitType, nodes []Node, edges []Edge) (*Unit, error) {
	now := time.Now().UTC()
	u := &Unit{
		ID:         NewID(),
		Type:       typ,
		Intent:     intent,
		Phases:     []Phase{PhaseSense, PhaseAct, PhaseFeedback},
		Tension:    0.8,
		Importance: 0.5,
		Nodes:      nodes,
		Edges:      edges,
		Profile:    TensionProfile{MaxTension: 1.0},
		Meta:       Meta{CreatedAt: now, UpdatedAt: now, Version: 1},
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// NewID generates a unique unit id: unit_<timestamp>_<8 hex chars>.
func NewID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("unit_%s_%s", time.Now().UTC().Format("20060102150405"), hex.EncodeToString(b[:]))
}

// Validate checks every structural invariant. It returns the first
// violation found as a *ValidationError.
func (u *Unit) Validate() error {
	if u.ID == "" {
		return &ValidationError{Field: "id", Msg: "required"}
	}
	if u.Intent == "" {
		return &ValidationError{Field: "intent", Msg: "required"}
	}
	if len(u.Nodes) == 0 {
		return &ValidationError{Field: "nodes", Msg: "at least one node is required"}
	}
	if u.Tension < 0 || u.Tension > 1 {
		return &ValidationError{Field: "tension", Msg: fmt.Sprintf("must be in [0, 1], got %g", u.Tension)}
	}
	if u.Importance < 0 || u.Importance > 1 {
		return &ValidationError{Field: "importance", Msg: fmt.Sprintf("must be in [0, 1], got %g", u.Importance)}
	}

	ids := make(map[string]bool, len(u.Nodes))
	for _, n := range u.Nodes {
		if n.ID == "" {
			return &ValidationError{Field: "nodes", Msg: "node id is required"}
		}
		if ids[n.ID] {
			return &ValidationError{Field: "nodes", Msg: "duplicate node id: " + n.ID}
		}
		ids[n.ID] = true

		if n.Op == "" && n.SubUnit == "" {
			return &ValidationError{Field: "nodes", Msg: fmt.Sprintf("node %s must set op or sub_unit", n.ID)}
		}
		if n.Op != "" && n.SubUnit != "" {
			return &ValidationError{Field: "nodes", Msg: fmt.Sprintf("node %s sets both op and sub_unit", n.ID)}
		}
	}

	for _, e := range u.Edges {
		if !ids[e.From] {
			return &ValidationError{Field: "edges", Msg: "edge references unknown node: " + e.From}
		}
		if !ids[e.To] {
			return &ValidationError{Field: "edges", Msg: "edge references unknown node: " + e.To}
		}
	}

	return nil
}

// GetNode returns the node with the given id, or nil if absent.
func (u *Unit) GetNode(id string) *Node {
	for i := range u.Nodes {
		if u.Nodes[i].ID == id {
			return &u.Nodes[i]
		}
	}
	return nil
}

// NodesByPhase returns nodes tagged with the phase, preserving original
// list order.
func (u *Unit) NodesByPhase(p Phase) []Node {
	var out []Node
	for _, n := range u.Nodes {
		if n.Phase == p {
			out = append(out, n)
		}
	}
	return out
}

// AddNode appends a node and bumps the update timestamp. The unit is
// not revalidated; call Validate before persisting.
func (u *Unit) AddNode(n Node) {
	u.Nodes = append(u.Nodes, n)
	u.Touch()
}

// AddEdge appends a dependency edge and bumps the update timestamp.
func (u *Unit) AddEdge(from, to string) {
	u.Edges = append(u.Edges, Edge{From: from, To: to})
	u.Touch()
}

// Resolve forces the unit into a settled state: tension drops to 0.1
// and every node is marked completed.
func (u *Unit) Resolve() {
	u.Tension = 0.1
	for i := range u.Nodes {
		u.Nodes[i].State = StateCompleted
	}
	u.Touch()
}

// ResetStates returns all nodes to pending, typically before a re-run.
func (u *Unit) ResetStates() {
	for i := range u.Nodes {
		u.Nodes[i].State = StatePending
	}
}

// Touch updates the modification timestamp.
func (u *Unit) Touch() {
	u.Meta.UpdatedAt = time.Now().UTC()
}

// Decode parses and validates a unit from its JSON record.
func Decode(data []byte) (*Unit, error) {
	var u Unit
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("parsing unit: %w", err)
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return &u, nil
}

// Encode serializes the unit to an indented JSON record preserving
// every field.
func (u *Unit) Encode() ([]byte, error) {
	return json.MarshalIndent(u, "", "  ")
}

// LoadFile reads and validates a unit from a JSON file.
func LoadFile(path string) (*Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading unit file: %w", err)
	}
	return Decode(data)
}

// SaveFile writes the unit as a whole-record JSON overwrite.
func (u *Unit) SaveFile(path string) error {
	data, err := u.Encode()
	if err != nil {
		return fmt.Errorf("encoding unit: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing unit file: %w", err)
	}
	return nil
}
