package interp

import "strings"

// Ref is a variable reference of the form "$name". Node inputs carry
// refs as plain strings on the wire; ParseRef recognizes them.
type Ref string

// ParseRef reports whether s is a variable reference and returns the
// bare name.
func ParseRef(s string) (Ref, bool) {
	if strings.HasPrefix(s, "$") && len(s) > 1 {
		return Ref(s[1:]), true
	}
	return "", false
}

// Entry records one executed node in a run's history.
type Entry struct {
	NodeID string `json:"node_id"`
	Action string `json:"action"`
	Result any    `json:"result,omitempty"`
}

// Context holds the mutable state of one run: variable bindings, the
// execution history, and accumulated node errors.
type Context struct {
	Vars    map[string]any
	History []Entry
	Errors  []string
}

// NewContext creates a Context seeded with a copy of the initial
// bindings, so callers keep ownership of their map.
func NewContext(initial map[string]any) *Context {
	vars := make(map[string]any, len(initial))
	for k, v := range initial {
		vars[k] = v
	}
	return &Context{Vars: vars}
}

// Set binds a value, tolerating a leading "$" on the name.
func (c *Context) Set(name string, value any) {
	name = strings.TrimPrefix(name, "$")
	c.Vars[name] = value
}

// Get reads a binding, tolerating a leading "$". Missing names are
// nil.
func (c *Context) Get(name string) any {
	return c.Vars[strings.TrimPrefix(name, "$")]
}

// Resolve turns a node input into its runtime value: "$name" strings
// become the bound value (nil when unbound), lists resolve
// element-wise, everything else passes through as a literal.
func (c *Context) Resolve(v any) any {
	switch x := v.(type) {
	case string:
		if ref, ok := ParseRef(x); ok {
			return c.Vars[string(ref)]
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = c.Resolve(item)
		}
		return out
	default:
		return v
	}
}

// Log appends a history entry.
func (c *Context) Log(nodeID, action string, result any) {
	c.History = append(c.History, Entry{NodeID: nodeID, Action: action, Result: result})
}

// AddError records a node failure. Errors do not stop the run.
func (c *Context) AddError(msg string) {
	c.Errors = append(c.Errors, msg)
}
