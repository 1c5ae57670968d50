// Package memory implements living recall: records that sense their
// relevance to a situation, activate when needed, and reshape
// themselves through feedback. A memory is activity, not storage.
package memory

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Memory is one recall record. Activation is computed during a sense
// pass and never persisted.
type Memory struct {
	ID      string         `json:"id"`
	Intent  string         `json:"intent"`
	Content map[string]any `json:"content"`

	// SensePatterns are lowercase trigger phrases; a substring match
	// against the situation is the fast activation path.
	SensePatterns []string `json:"sense_patterns,omitempty"`

	Tension     float64 `json:"tension"`
	SuccessRate float64 `json:"success_rate"`
	TimesUsed   int     `json:"times_used"`

	CreatedAt     time.Time  `json:"created_at"`
	LastActivated *time.Time `json:"last_activated,omitempty"`

	Activation float64 `json:"-"`
}

// NewID generates a memory id: mem_<timestamp>_<8 hex chars>.
func NewID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("mem_%s_%s", time.Now().UTC().Format("20060102150405"), hex.EncodeToString(b[:]))
}

// Reinforce applies one feedback observation: the success rate moves by
// an exponential moving average with the given learning rate, and
// tension releases on success (x0.9, floor 0.05) or builds on failure
// (x1.15, cap 1.0).
func (m *Memory) Reinforce(success bool, rate float64) {
	value := 0.0
	if success {
		value = 1.0
	}
	m.SuccessRate = m.SuccessRate*(1-rate) + value*rate

	if success {
		m.Tension = max(0.05, m.Tension*0.9)
	} else {
		m.Tension = min(1.0, m.Tension*1.15)
	}
}

// touch marks an activation.
func (m *Memory) touch() {
	m.TimesUsed++
	now := time.Now().UTC()
	m.LastActivated = &now
}
