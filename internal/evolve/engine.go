package evolve

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/tautline/taut/internal/blueprint"
	"github.com/tautline/taut/internal/gen"
	"github.com/tautline/taut/internal/graph"
	"github.com/tautline/taut/internal/interp"
	"github.com/tautline/taut/internal/logging"
	"github.com/tautline/taut/internal/pool"
)

// Options tunes selection, evolution, and pruning.
type Options struct {
	// MinRuns is how many tracked runs a unit needs before it can be
	// pruned.
	MinRuns int

	// MinSuccessRate is the rate below which a unit with enough runs
	// is archived.
	MinSuccessRate float64

	// EvolveThreshold is the step success below which the weakest
	// selected member is rewritten.
	EvolveThreshold float64
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		MinRuns:         5,
		MinSuccessRate:  0.3,
		EvolveThreshold: 0.4,
	}
}

// Deps are the engine's collaborators. Pools and Metrics are required;
// Gen falls back to the static client and Log to a discard logger.
type Deps struct {
	Pools      *pool.Store
	Blueprints *blueprint.Store
	Metrics    *Metrics
	Gen        gen.Client
	Interp     *interp.Interpreter
	Log        *slog.Logger
	Trace      *logging.TraceLogger
	Options    Options
}

// Engine drives the select-run-evaluate-evolve cycle over unit pools.
// It is a single writer: concurrent engines over one data dir race on
// pool files.
type Engine struct {
	pools      *pool.Store
	blueprints *blueprint.Store
	metrics    *Metrics
	gen        gen.Client
	interp     *interp.Interpreter
	log        *slog.Logger
	trace      *logging.TraceLogger
	opts       Options
}

// New constructs an engine from its dependencies.
func New(deps Deps) *Engine {
	e := &Engine{
		pools:      deps.Pools,
		blueprints: deps.Blueprints,
		metrics:    deps.Metrics,
		gen:        deps.Gen,
		interp:     deps.Interp,
		log:        deps.Log,
		trace:      deps.Trace,
		opts:       deps.Options,
	}
	if e.gen == nil {
		e.gen = gen.NewStaticClient()
	}
	if e.log == nil {
		e.log = slog.New(slog.DiscardHandler)
	}
	if e.opts == (Options{}) {
		e.opts = DefaultOptions()
	}
	return e
}

// selectionKeywords maps pool -> member base name -> intent keywords.
// A member whose base name is absent scores on name words and metrics
// alone.
var selectionKeywords = map[string]map[string][]string{
	"sense": {
		"get_input":     {"input", "get", "receive", "read"},
		"find_memories": {"memory", "remember", "recall", "past"},
		"parse_input":   {"parse", "understand", "extract", "analyze input"},
	},
	"act": {
		"summarize_text":    {"summarize", "summary", "brief", "short"},
		"analyze_content":   {"analyze", "analysis", "examine", "deep"},
		"generate_response": {"generate", "create", "write", "produce"},
		"transform_content": {"transform", "convert", "change", "format"},
	},
	"feedback": {
		"emit_result":           {"emit", "output", "return", "simple"},
		"learn_from_experience": {"learn", "remember", "memory", "improve"},
		"evaluate_quality":      {"evaluate", "score", "quality", "rate"},
	},
}

func matchScore(intent string, keywords []string) int {
	intent = strings.ToLower(intent)
	score := 0
	for _, k := range keywords {
		if strings.Contains(intent, k) {
			score++
		}
	}
	return score
}

// baseName strips a trailing _v<n> version suffix.
func baseName(name string) string {
	if i := strings.LastIndex(name, "_v"); i > 0 {
		if _, err := strconv.Atoi(name[i+2:]); err == nil {
			return name[:i]
		}
	}
	return name
}

// Select picks the best member of a pool for an intent. Scoring:
// keyword matches x2, intent words appearing in the name x1, tracked
// success rate x3, and a 0.5 bonus per version number. Returns "" for
// an empty pool. Ties keep the lexically first member.
func (e *Engine) Select(ctx context.Context, poolName, intent string) (string, error) {
	names, err := e.pools.List(poolName)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}

	keywords := selectionKeywords[poolName]

	best := names[0]
	bestScore := -1.0
	for _, name := range names {
		score := float64(matchScore(intent, keywords[baseName(name)])) * 2

		lower := strings.ToLower(name)
		for _, word := range strings.Fields(strings.ToLower(intent)) {
			if strings.Contains(lower, word) {
				score++
			}
		}

		score += e.metrics.Rate(ctx, poolName+"/"+name) * 3

		if i := strings.LastIndex(name, "_v"); i > 0 {
			if v, err := strconv.Atoi(name[i+2:]); err == nil {
				score += float64(v) * 0.5
			}
		}

		if score > bestScore {
			bestScore = score
			best = name
		}
	}
	return best, nil
}

// SelectAll picks one member per standard pool. Empty pools map to "".
func (e *Engine) SelectAll(ctx context.Context, intent string) (map[string]string, error) {
	out := make(map[string]string, 3)
	for _, p := range []string{"sense", "act", "feedback"} {
		name, err := e.Select(ctx, p, intent)
		if err != nil {
			return nil, err
		}
		out[p] = name
	}
	return out, nil
}

// Compose selects members for the intent and assembles them into a
// composite unit whose nodes recurse into the selected units. Missing
// pools are skipped; an error is returned only when every pool is
// empty.
func (e *Engine) Compose(ctx context.Context, intent string) (*graph.Unit, map[string]string, error) {
	selections, err := e.SelectAll(ctx, intent)
	if err != nil {
		return nil, nil, err
	}

	var nodes []graph.Node
	var edges []graph.Edge
	prevOutput := "input"

	type part struct {
		pool   string
		nodeID string
		typ    graph.NodeType
		phase  graph.Phase
		output string
	}
	parts := []part{
		{"sense", "s", graph.NodeInput, graph.PhaseSense, "sensed"},
		{"act", "a", graph.NodeProcess, graph.PhaseAct, "result"},
		{"feedback", "f", graph.NodeOutput, graph.PhaseFeedback, "feedback"},
	}

	for _, p := range parts {
		name := selections[p.pool]
		if name == "" {
			continue
		}
		member, err := e.pools.Load(p.pool, name)
		if err != nil {
			return nil, nil, fmt.Errorf("composing for %q: %w", intent, err)
		}
		n := graph.Node{
			ID:          p.nodeID,
			Type:        p.typ,
			Phase:       p.phase,
			Description: member.Intent,
			SubUnit:     member.ID,
			Input:       "$" + prevOutput,
			Output:      p.output,
		}
		if len(nodes) > 0 {
			edges = append(edges, graph.Edge{From: nodes[len(nodes)-1].ID, To: n.ID})
		}
		nodes = append(nodes, n)
		prevOutput = p.output
	}

	if len(nodes) == 0 {
		return nil, nil, fmt.Errorf("composing for %q: all pools are empty", intent)
	}

	u, err := graph.New(intent, graph.UnitComposite, nodes, edges)
	if err != nil {
		return nil, nil, err
	}
	return u, selections, nil
}

// UpdateTension adjusts a pool member's tension from a run outcome:
// success above 0.7 releases tension by 0.1 (floor 0.1), below 0.3
// raises it by 0.2 (cap 1.0), in between leaves it alone.
func (e *Engine) UpdateTension(poolName, name string, success float64) error {
	u, err := e.pools.Load(poolName, name)
	if err != nil {
		return err
	}

	switch {
	case success > 0.7:
		u.Tension = max(0.1, u.Tension-0.1)
	case success < 0.3:
		u.Tension = min(1.0, u.Tension+0.2)
	default:
		return nil
	}
	u.Touch()
	return e.pools.Save(poolName, name, u)
}

// Evolve generates an improved version of a pool member and saves it
// under the smallest unused name_v{n} suffix (n >= 2). The original is
// left untouched. Returns the new member name and unit.
func (e *Engine) Evolve(ctx context.Context, poolName, name, failureReason string) (string, *graph.Unit, error) {
	current, err := e.pools.Load(poolName, name)
	if err != nil {
		return "", nil, err
	}

	improved := e.improve(ctx, current, failureReason)
	improved.Type = current.Type
	improved.Meta.ParentID = current.ID
	improved.Meta.Version = current.Meta.Version + 1

	names, err := e.pools.List(poolName)
	if err != nil {
		return "", nil, err
	}
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	version := 2
	newName := fmt.Sprintf("%s_v%d", name, version)
	for taken[newName] {
		version++
		newName = fmt.Sprintf("%s_v%d", name, version)
	}

	if err := e.pools.Save(poolName, newName, improved); err != nil {
		return "", nil, err
	}

	e.log.Info("evolved unit", "pool", poolName, "from", name, "to", newName)
	e.trace.Log(map[string]any{
		"event":  "evolve",
		"pool":   poolName,
		"from":   name,
		"to":     newName,
		"reason": failureReason,
	})
	return newName, improved, nil
}

// improve asks the generation client to rewrite the unit; any failure
// to generate or parse falls back to a fresh blueprint instance.
func (e *Engine) improve(ctx context.Context, current *graph.Unit, failureReason string) *graph.Unit {
	record, err := current.Encode()
	if err == nil && e.gen.Available() {
		var failures []string
		if failureReason != "" {
			failures = []string{failureReason}
		}
		resp, genErr := e.gen.Generate(ctx, gen.ImprovePrompt(string(record), failures))
		if genErr == nil {
			if u, parseErr := decodeGenerated(resp, current.Intent); parseErr == nil {
				return u
			}
		}
	}

	u, err := e.blueprints.Instantiate("generate", "Improved: "+current.Intent, nil)
	if err != nil {
		// last resort: a copy of the current unit under a new id
		clone := *current
		clone.ID = graph.NewID()
		now := time.Now().UTC()
		clone.Meta = graph.Meta{CreatedAt: now, UpdatedAt: now, Version: 1}
		return &clone
	}
	return u
}

// decodeGenerated normalizes a model response into a valid unit:
// missing id, intent, phases, and profile are filled in before
// validation.
func decodeGenerated(resp, fallbackIntent string) (*graph.Unit, error) {
	var u graph.Unit
	if err := json.Unmarshal([]byte(gen.ExtractJSON(resp)), &u); err != nil {
		return nil, fmt.Errorf("parsing generated unit: %w", err)
	}
	if u.ID == "" {
		u.ID = graph.NewID()
	}
	if u.Intent == "" {
		u.Intent = "Improved: " + fallbackIntent
	}
	if len(u.Phases) == 0 {
		u.Phases = []graph.Phase{graph.PhaseSense, graph.PhaseAct, graph.PhaseFeedback}
	}
	if u.Tension == 0 {
		u.Tension = 0.8
	}
	if u.Importance == 0 {
		u.Importance = 0.5
	}
	if u.Profile.MaxTension == 0 {
		u.Profile.MaxTension = 1.0
	}
	now := time.Now().UTC()
	u.Meta.CreatedAt = now
	u.Meta.UpdatedAt = now
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return &u, nil
}

// Prune archives every member of a pool whose tracked record shows at
// least MinRuns runs and a rate below MinSuccessRate. Returns the
// archived names.
func (e *Engine) Prune(ctx context.Context, poolName string) ([]string, error) {
	names, err := e.pools.List(poolName)
	if err != nil {
		return nil, err
	}

	var pruned []string
	for _, name := range names {
		stats, ok := e.metrics.Stats(ctx, poolName+"/"+name)
		if !ok {
			continue
		}
		if stats.Runs >= e.opts.MinRuns && stats.SuccessRate < e.opts.MinSuccessRate {
			if err := e.pools.Archive(poolName, name); err != nil {
				return pruned, err
			}
			pruned = append(pruned, name)
			e.log.Info("pruned unit", "pool", poolName, "name", name, "rate", stats.SuccessRate)
			e.trace.Log(map[string]any{
				"event": "prune",
				"pool":  poolName,
				"name":  name,
				"rate":  stats.SuccessRate,
			})
		}
	}
	return pruned, nil
}

// Evaluate scores a run output in [0, 1]. With an expected value it
// compares (containment 1.0, shared words 0.7, mismatch 0.3; non-string
// equality 1.0, else 0.5). Without one it falls back to heuristics on
// the output alone.
func Evaluate(result, expected any) float64 {
	if expected != nil {
		es, eok := expected.(string)
		rs, rok := result.(string)
		if eok && rok {
			rl := strings.ToLower(rs)
			el := strings.ToLower(es)
			if strings.Contains(rl, el) {
				return 1.0
			}
			for _, word := range strings.Fields(el) {
				if strings.Contains(rl, word) {
					return 0.7
				}
			}
			return 0.3
		}
		if reflect.DeepEqual(result, expected) {
			return 1.0
		}
		return 0.5
	}

	if result == nil {
		return 0.0
	}

	if s, ok := result.(string); ok {
		lower := strings.ToLower(s)
		for _, phrase := range []string{"error", "failed", "cannot", "unable", "sorry", "please provide"} {
			if strings.Contains(lower, phrase) {
				return 0.3
			}
		}
		switch {
		case len(s) < 10:
			return 0.4
		case len(s) > 50:
			return 0.8
		default:
			return 0.6
		}
	}

	return 0.5
}

// Task is one evolution exercise: run a composed agent for Intent over
// Input and score the output, against Expected when set.
type Task struct {
	Intent   string `json:"intent" yaml:"intent"`
	Input    any    `json:"input,omitempty" yaml:"input,omitempty"`
	Expected any    `json:"expected,omitempty" yaml:"expected,omitempty"`
}

// StepResult reports one evolution step.
type StepResult struct {
	Intent     string            `json:"intent"`
	Selections map[string]string `json:"selections"`
	Output     any               `json:"output"`
	Success    float64           `json:"success"`
	Evolved    string            `json:"evolved,omitempty"`
}

// Step runs one select-run-evaluate cycle: compose an agent for the
// task, run it, score the output, track and re-tension every selected
// member, and rewrite the weakest member when the score falls below
// EvolveThreshold.
func (e *Engine) Step(ctx context.Context, task Task) (*StepResult, error) {
	agent, selections, err := e.Compose(ctx, task.Intent)
	if err != nil {
		return nil, err
	}

	// score what the run reports: the value of the last executed node,
	// which is the feedback member's output
	res := e.interp.Run(ctx, agent, map[string]any{"input": task.Input})
	output := res.Value

	success := Evaluate(output, task.Expected)

	for poolName, name := range selections {
		if name == "" {
			continue
		}
		if _, err := e.metrics.Track(ctx, poolName+"/"+name, success, task.Intent); err != nil {
			return nil, err
		}
		if err := e.UpdateTension(poolName, name, success); err != nil {
			return nil, err
		}
	}

	step := &StepResult{
		Intent:     task.Intent,
		Selections: selections,
		Output:     output,
		Success:    success,
	}

	if success < e.opts.EvolveThreshold {
		weakestPool, weakestName := "", ""
		weakestRate := 2.0
		for _, p := range []string{"sense", "act", "feedback"} {
			name := selections[p]
			if name == "" {
				continue
			}
			if rate := e.metrics.Rate(ctx, p+"/"+name); rate < weakestRate {
				weakestRate = rate
				weakestPool, weakestName = p, name
			}
		}
		if weakestName != "" {
			newName, _, err := e.Evolve(ctx, weakestPool, weakestName, "Low success on: "+task.Intent)
			if err != nil {
				return nil, err
			}
			step.Evolved = weakestPool + "/" + newName
		}
	}

	e.log.Debug("evolution step", "intent", task.Intent, "success", success, "evolved", step.Evolved)
	e.trace.Log(map[string]any{
		"event":      "step",
		"intent":     task.Intent,
		"selections": selections,
		"success":    success,
		"evolved":    step.Evolved,
	})
	return step, nil
}

// RoundResult aggregates one pass over the task list.
type RoundResult struct {
	Round      int           `json:"round"`
	Results    []*StepResult `json:"results"`
	AvgSuccess float64       `json:"avg_success"`
}

// LoopResult reports a whole evolution run.
type LoopResult struct {
	Rounds      []RoundResult `json:"rounds"`
	TotalTasks  int           `json:"total_tasks"`
	Improvement float64       `json:"improvement"`
}

// Loop runs the task list for the given number of rounds. Improvement
// is the last round's average success minus the first's.
func (e *Engine) Loop(ctx context.Context, tasks []Task, rounds int) (*LoopResult, error) {
	if rounds < 1 {
		rounds = 1
	}

	out := &LoopResult{TotalTasks: len(tasks) * rounds}
	for round := 1; round <= rounds; round++ {
		rr := RoundResult{Round: round}
		for _, task := range tasks {
			step, err := e.Step(ctx, task)
			if err != nil {
				return nil, fmt.Errorf("round %d, task %q: %w", round, task.Intent, err)
			}
			rr.Results = append(rr.Results, step)
			rr.AvgSuccess += step.Success
		}
		if len(rr.Results) > 0 {
			rr.AvgSuccess /= float64(len(rr.Results))
		}
		e.log.Info("evolution round complete", "round", round, "avg_success", rr.AvgSuccess)
		out.Rounds = append(out.Rounds, rr)
	}

	if len(out.Rounds) > 1 {
		out.Improvement = out.Rounds[len(out.Rounds)-1].AvgSuccess - out.Rounds[0].AvgSuccess
	}
	return out, nil
}
