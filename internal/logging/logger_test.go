package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"info", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_TraceLabel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("trace", &buf)

	log.Log(nil, LevelTrace, "deep detail", "k", "v")
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("trace level not labeled: %s", buf.String())
	}

	buf.Reset()
	log = NewLogger("info", &buf)
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug leaked at info level: %s", buf.String())
	}
}

func TestTraceLogger(t *testing.T) {
	dir := t.TempDir()

	if tl := NewTraceLogger(dir, "info"); tl != nil {
		t.Error("info level should not create a trace logger")
	}

	tl := NewTraceLogger(dir, "debug")
	if tl == nil {
		t.Fatal("debug level should create a trace logger")
	}
	defer tl.Close()

	tl.Log(map[string]any{"event": "evolve", "unit": "u1"})
	tl.Log(map[string]any{"event": "prune", "unit": "u2"})
	tl.Close()

	f, err := os.Open(filepath.Join(dir, "trace.jsonl"))
	if err != nil {
		t.Fatalf("trace file missing: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Errorf("line %d is not valid JSON: %v", lines, err)
		}
		if entry["time"] == nil {
			t.Errorf("line %d missing time", lines)
		}
	}
	if lines != 2 {
		t.Errorf("expected 2 lines, got %d", lines)
	}
}

func TestTraceLogger_NilSafe(t *testing.T) {
	var tl *TraceLogger
	tl.Log(map[string]any{"event": "noop"})
	tl.Close()
}
