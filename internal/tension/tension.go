// Package tension implements the scalar drive calculus: a unit's
// tension is a weighted blend of importance, urgency, unresolvedness,
// and blocking, propagated through unit hierarchies.
package tension

import (
	"time"

	"github.com/tautline/taut/internal/graph"
)

// Config holds the weights of the tension calculation and propagation.
type Config struct {
	ImportanceWeight float64 `json:"importance_weight" yaml:"importance_weight"`
	UrgencyWeight    float64 `json:"urgency_weight" yaml:"urgency_weight"`
	UnresolvedWeight float64 `json:"unresolved_weight" yaml:"unresolved_weight"`
	BlockingWeight   float64 `json:"blocking_weight" yaml:"blocking_weight"`

	// MaxWeight and AvgWeight blend a parent's tension from its
	// children: max*MaxWeight + avg*AvgWeight.
	MaxWeight float64 `json:"max_weight" yaml:"max_weight"`
	AvgWeight float64 `json:"avg_weight" yaml:"avg_weight"`

	// ImportanceDecay scales importance inherited from a parent.
	ImportanceDecay float64 `json:"importance_decay" yaml:"importance_decay"`

	// UrgencyHorizon is how far out a deadline stops contributing
	// urgency at all.
	UrgencyHorizon time.Duration `json:"urgency_horizon" yaml:"urgency_horizon"`

	// BlockWeight is the urgency added per blocked dependent.
	BlockWeight float64 `json:"block_weight" yaml:"block_weight"`
}

// DefaultConfig returns the standard weights: 0.3/0.3/0.2/0.2 blend,
// 0.7/0.3 propagation, 0.9 importance decay, 24h urgency horizon.
func DefaultConfig() Config {
	return Config{
		ImportanceWeight: 0.3,
		UrgencyWeight:    0.3,
		UnresolvedWeight: 0.2,
		BlockingWeight:   0.2,
		MaxWeight:        0.7,
		AvgWeight:        0.3,
		ImportanceDecay:  0.9,
		UrgencyHorizon:   24 * time.Hour,
		BlockWeight:      0.2,
	}
}

// Calculate blends the four factors into a tension value clamped to
// [0, 1].
func Calculate(importance, urgency, unresolved, blocking float64, cfg Config) float64 {
	t := importance*cfg.ImportanceWeight +
		urgency*cfg.UrgencyWeight +
		unresolved*cfg.UnresolvedWeight +
		blocking*cfg.BlockingWeight
	return clamp(t)
}

// Urgency derives urgency from an optional deadline: 1.0 past due,
// 0.0 beyond the horizon, linear in between, and 0.5 when there is no
// deadline at all.
func Urgency(deadline *time.Time, horizon time.Duration) float64 {
	if deadline == nil {
		return 0.5
	}
	left := time.Until(*deadline)
	switch {
	case left <= 0:
		return 1.0
	case left >= horizon:
		return 0.0
	default:
		return 1.0 - float64(left)/float64(horizon)
	}
}

// UnresolvedRatio is 1 minus the fraction of nodes whose state is
// completed. An empty collection counts as fully resolved.
func UnresolvedRatio(nodes []graph.Node) float64 {
	if len(nodes) == 0 {
		return 0.0
	}
	resolved := 0
	for _, n := range nodes {
		if n.State == graph.StateCompleted {
			resolved++
		}
	}
	return 1.0 - float64(resolved)/float64(len(nodes))
}

// BlockingFactor scales with the number of dependents waiting on this
// unit, capped at 1.
func BlockingFactor(blockedCount int, perBlock float64) float64 {
	f := float64(blockedCount) * perBlock
	if f > 1 {
		return 1
	}
	return f
}

// UnitTension computes a unit's own tension from its importance, its
// deadline, its node completion ratio, and how many units it blocks.
func UnitTension(u *graph.Unit, cfg Config) float64 {
	urgency := Urgency(u.Meta.Deadline, cfg.UrgencyHorizon)
	unresolved := UnresolvedRatio(u.Nodes)
	blocking := BlockingFactor(len(u.Profile.BlockedBy), cfg.BlockWeight)
	return Calculate(u.Importance, urgency, unresolved, blocking, cfg)
}

// PropagateUp blends child tensions into a parent value, biased toward
// the single most urgent child without ignoring the rest. No children
// yields the neutral 0.5.
func PropagateUp(children []float64, cfg Config) float64 {
	if len(children) == 0 {
		return 0.5
	}
	max, sum := children[0], 0.0
	for _, c := range children {
		if c > max {
			max = c
		}
		sum += c
	}
	avg := sum / float64(len(children))
	return max*cfg.MaxWeight + avg*cfg.AvgWeight
}

// InheritImportance returns the child's explicit importance when set,
// otherwise the parent's decayed value.
func InheritImportance(parent float64, child *float64, cfg Config) float64 {
	if child != nil {
		return *child
	}
	return parent * cfg.ImportanceDecay
}

// TreeNode is one level of a unit hierarchy for tree-wide updates.
type TreeNode struct {
	Unit     *graph.Unit
	Children []*TreeNode

	// explicit marks units whose importance was set by hand and must
	// not be overwritten by inheritance.
	Explicit bool
}

// UpdateTree settles a unit hierarchy in two passes: importance flows
// top-down first so that every leaf computes tension against a settled
// importance, then tension flows bottom-up, leaves first.
func UpdateTree(root *TreeNode, cfg Config) {
	if root == nil || root.Unit == nil {
		return
	}
	propagateImportance(root, root.Unit.Importance, cfg)
	root.Unit.Tension = propagateTension(root, cfg)
}

func propagateImportance(n *TreeNode, parent float64, cfg Config) {
	if !n.Explicit {
		n.Unit.Importance = clamp(parent * cfg.ImportanceDecay)
	}
	for _, c := range n.Children {
		propagateImportance(c, n.Unit.Importance, cfg)
	}
}

func propagateTension(n *TreeNode, cfg Config) float64 {
	if len(n.Children) == 0 {
		return UnitTension(n.Unit, cfg)
	}
	tensions := make([]float64, 0, len(n.Children))
	for _, c := range n.Children {
		c.Unit.Tension = propagateTension(c, cfg)
		tensions = append(tensions, c.Unit.Tension)
	}
	return clamp(PropagateUp(tensions, cfg))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
