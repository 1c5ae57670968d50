package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tautline/taut/internal/gen"
)

// Options tunes recall and pruning.
type Options struct {
	// ActivationThreshold is the minimum activation for recall. Zero
	// recalls everything that activated at all; top-k still bounds the
	// result.
	ActivationThreshold float64

	// TopK bounds how many memories activate per recall.
	TopK int

	// LearningRate is the EMA weight for success-rate updates.
	LearningRate float64

	// PruneTension and PruneSuccess: memories below BOTH are deleted.
	PruneTension float64
	PruneSuccess float64
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		ActivationThreshold: 0,
		TopK:                3,
		LearningRate:        0.2,
		PruneTension:        0.05,
		PruneSuccess:        0.2,
	}
}

// Book manages the memory population: one JSON file per memory under
// its root directory. Methods are safe for sequential use; callers
// needing concurrency serialize externally.
type Book struct {
	dir   string
	gen   gen.Client
	embed gen.Embedder
	log   *slog.Logger
	opts  Options

	memories []*Memory
	loaded   bool
}

// New creates a Book rooted at dir. A nil client degrades sensing to
// the fast pattern path only.
func New(dir string, gc gen.Client, log *slog.Logger, opts Options) *Book {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts == (Options{}) {
		opts = DefaultOptions()
	}
	b := &Book{dir: dir, gen: gc, log: log, opts: opts}
	if e, ok := gc.(gen.Embedder); ok {
		b.embed = e
	}
	return b
}

// Load reads every memory file under the root. Unreadable files are
// skipped with a warning.
func (b *Book) Load() (int, error) {
	b.memories = nil
	if err := os.MkdirAll(b.dir, 0o700); err != nil {
		return 0, fmt.Errorf("creating memory dir: %w", err)
	}

	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return 0, fmt.Errorf("reading memory dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.dir, e.Name()))
		if err != nil {
			b.log.Warn("skipping unreadable memory", "file", e.Name(), "error", err)
			continue
		}
		var m Memory
		if err := json.Unmarshal(data, &m); err != nil {
			b.log.Warn("skipping malformed memory", "file", e.Name(), "error", err)
			continue
		}
		b.memories = append(b.memories, &m)
	}

	sort.Slice(b.memories, func(i, j int) bool { return b.memories[i].ID < b.memories[j].ID })
	b.loaded = true
	return len(b.memories), nil
}

func (b *Book) ensureLoaded() {
	if !b.loaded {
		_, _ = b.Load()
	}
}

func (b *Book) save(m *Memory) error {
	if err := os.MkdirAll(b.dir, 0o700); err != nil {
		return fmt.Errorf("creating memory dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding memory %s: %w", m.ID, err)
	}
	if err := os.WriteFile(filepath.Join(b.dir, m.ID+".json"), data, 0o600); err != nil {
		return fmt.Errorf("writing memory %s: %w", m.ID, err)
	}
	return nil
}

// Sense has every memory rate its relevance to the situation and sets
// activations (tension x relevance). Pattern matches take the fast
// path at relevance 0.9; the rest are rated in one batched generation
// call. Without an available client unrated memories fall back to
// relevance 0.1.
func (b *Book) Sense(ctx context.Context, situation string) {
	b.ensureLoaded()
	if len(b.memories) == 0 {
		return
	}

	lower := strings.ToLower(situation)
	var unmatched []*Memory
	for _, m := range b.memories {
		if matchesPattern(m, lower) {
			m.Activation = m.Tension * 0.9
		} else {
			m.Activation = m.Tension * 0.1
			unmatched = append(unmatched, m)
		}
	}

	if len(unmatched) == 0 || b.gen == nil || !b.gen.Available() {
		return
	}

	intents := make([]string, len(unmatched))
	for i, m := range unmatched {
		intents[i] = m.Intent
	}
	resp, err := b.gen.Generate(ctx, gen.RelevancePrompt(situation, intents))
	if err != nil {
		b.log.Warn("relevance rating failed", "error", err)
		return
	}

	var ratings []float64
	if err := json.Unmarshal([]byte(gen.ExtractJSON(resp)), &ratings); err != nil {
		b.log.Warn("relevance response not parseable", "error", err)
		return
	}
	for i, m := range unmatched {
		relevance := 0.1
		if i < len(ratings) {
			relevance = max(0.0, min(1.0, ratings[i]))
		}
		m.Activation = m.Tension * relevance
	}
}

func matchesPattern(m *Memory, situation string) bool {
	for _, p := range m.SensePatterns {
		if p != "" && strings.Contains(situation, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// Activate returns the top-k memories above the activation threshold,
// highest first, marking each as used. Call Sense first.
func (b *Book) Activate() ([]*Memory, error) {
	b.ensureLoaded()

	var qualified []*Memory
	for _, m := range b.memories {
		if m.Activation > b.opts.ActivationThreshold {
			qualified = append(qualified, m)
		}
	}
	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].Activation > qualified[j].Activation
	})
	if len(qualified) > b.opts.TopK {
		qualified = qualified[:b.opts.TopK]
	}

	for _, m := range qualified {
		m.touch()
		if err := b.save(m); err != nil {
			return nil, err
		}
	}
	return qualified, nil
}

// Create adds a new memory. New memories start tense so they get
// noticed; pass tension 0 to use the 0.8 default.
func (b *Book) Create(intent string, content map[string]any, patterns []string, tension float64) (*Memory, error) {
	b.ensureLoaded()

	if tension == 0 {
		tension = 0.8
	}
	m := &Memory{
		ID:            NewID(),
		Intent:        intent,
		Content:       content,
		SensePatterns: patterns,
		Tension:       tension,
		SuccessRate:   0.5,
		CreatedAt:     time.Now().UTC(),
	}
	if err := b.save(m); err != nil {
		return nil, err
	}
	b.memories = append(b.memories, m)
	return m, nil
}

// Learn distills an experience into a new memory: the client extracts
// an intent, a lesson, and trigger patterns. Returns nil (without
// error) when no lesson could be extracted from the response.
func (b *Book) Learn(ctx context.Context, task, result string, success bool) (*Memory, error) {
	outcome := "failed"
	if success {
		outcome = "succeeded"
	}

	if b.gen == nil {
		return nil, nil
	}
	resp, err := b.gen.Generate(ctx, gen.LessonPrompt(task+"\nResult: "+result, outcome))
	if err != nil {
		return nil, fmt.Errorf("extracting lesson: %w", err)
	}

	var lesson struct {
		Intent   string `json:"intent"`
		Lesson   string `json:"lesson"`
		Patterns any    `json:"patterns"`
	}
	if err := json.Unmarshal([]byte(gen.ExtractJSON(resp)), &lesson); err != nil {
		b.log.Warn("lesson response not parseable", "error", err)
		return nil, nil
	}

	intent := strings.TrimSpace(lesson.Intent)
	if intent == "" {
		intent = "Lesson from: " + truncate(task, 50)
	}
	body := strings.TrimSpace(lesson.Lesson)
	if body == "" {
		body = fmt.Sprintf("Task %s: %s", outcome, truncate(result, 100))
	}

	return b.Create(intent, map[string]any{
		"lesson":         body,
		"source_task":    task,
		"source_result":  result,
		"was_successful": success,
	}, patternList(lesson.Patterns), 0.8)
}

// patternList normalizes the patterns field: a JSON array of strings
// or a comma-separated string.
func patternList(v any) []string {
	switch t := v.(type) {
	case []any:
		var out []string
		for _, p := range t {
			if s, ok := p.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		var out []string
		for _, p := range strings.Split(t, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Feedback reinforces or weakens the given memories and persists them.
func (b *Book) Feedback(used []*Memory, success bool) error {
	for _, m := range used {
		m.Reinforce(success, b.opts.LearningRate)
		if err := b.save(m); err != nil {
			return err
		}
	}
	return nil
}

// Prune deletes memories that are both slack (tension below
// PruneTension) and failing (success rate below PruneSuccess). A slack
// memory with a good track record is kept. Returns how many were
// removed.
func (b *Book) Prune() (int, error) {
	b.ensureLoaded()

	kept := b.memories[:0]
	removed := 0
	for _, m := range b.memories {
		if m.Tension < b.opts.PruneTension && m.SuccessRate < b.opts.PruneSuccess {
			if err := os.Remove(filepath.Join(b.dir, m.ID+".json")); err != nil && !os.IsNotExist(err) {
				return removed, fmt.Errorf("pruning memory %s: %w", m.ID, err)
			}
			removed++
			continue
		}
		kept = append(kept, m)
	}
	b.memories = kept
	return removed, nil
}

// ByTension returns memories at or above the tension threshold,
// highest first.
func (b *Book) ByTension(minTension float64) []*Memory {
	b.ensureLoaded()
	var out []*Memory
	for _, m := range b.memories {
		if m.Tension >= minTension {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tension > out[j].Tension })
	return out
}

// ByIntent returns memories whose intent contains the keyword,
// case-insensitive.
func (b *Book) ByIntent(keyword string) []*Memory {
	b.ensureLoaded()
	keyword = strings.ToLower(keyword)
	var out []*Memory
	for _, m := range b.memories {
		if strings.Contains(strings.ToLower(m.Intent), keyword) {
			out = append(out, m)
		}
	}
	return out
}

// Similar ranks memories by embedding similarity between the query and
// each intent. Requires an embedding-capable client; otherwise returns
// nil.
func (b *Book) Similar(ctx context.Context, query string, k int) ([]*Memory, error) {
	b.ensureLoaded()
	if b.embed == nil || len(b.memories) == 0 {
		return nil, nil
	}

	qv, err := b.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	type scored struct {
		m     *Memory
		score float64
	}
	ranked := make([]scored, 0, len(b.memories))
	for _, m := range b.memories {
		mv, err := b.embed.Embed(ctx, m.Intent)
		if err != nil {
			continue
		}
		ranked = append(ranked, scored{m, gen.CosineSimilarity(qv, mv)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	out := make([]*Memory, len(ranked))
	for i, s := range ranked {
		out[i] = s.m
	}
	return out, nil
}

// Stats summarizes the population.
type Stats struct {
	Count          int     `json:"count"`
	AvgTension     float64 `json:"avg_tension,omitempty"`
	MaxTension     float64 `json:"max_tension,omitempty"`
	MinTension     float64 `json:"min_tension,omitempty"`
	AvgSuccessRate float64 `json:"avg_success_rate,omitempty"`
	TotalUses      int     `json:"total_uses,omitempty"`
}

// Summary computes population statistics.
func (b *Book) Summary() Stats {
	b.ensureLoaded()
	s := Stats{Count: len(b.memories)}
	if s.Count == 0 {
		return s
	}

	s.MinTension = b.memories[0].Tension
	for _, m := range b.memories {
		s.AvgTension += m.Tension
		s.AvgSuccessRate += m.SuccessRate
		s.TotalUses += m.TimesUsed
		s.MaxTension = max(s.MaxTension, m.Tension)
		s.MinTension = min(s.MinTension, m.Tension)
	}
	s.AvgTension /= float64(s.Count)
	s.AvgSuccessRate /= float64(s.Count)
	return s
}

// All returns the loaded population, highest tension first.
func (b *Book) All() []*Memory {
	b.ensureLoaded()
	out := make([]*Memory, len(b.memories))
	copy(out, b.memories)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tension > out[j].Tension })
	return out
}

// Get returns a memory by id.
func (b *Book) Get(id string) (*Memory, bool) {
	b.ensureLoaded()
	for _, m := range b.memories {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// Len returns the population size.
func (b *Book) Len() int {
	b.ensureLoaded()
	return len(b.memories)
}
