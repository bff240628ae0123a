// Package report persists records of classification runs so they can be
// fetched later by run ID. Records are kept in a small in-memory LRU
// backed by JSON files on disk.
package report

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/earshot/earshot/internal/runner"
)

// Limits applied to stored stream text. Responses carry the streams in
// full; only the persisted record is trimmed.
const (
	storedStreamLines = 20
	storedStreamCols  = 200
)

// RunRecord is the persisted summary of one worker invocation.
type RunRecord struct {
	ID        string          `json:"id"`
	Kind      runner.Kind     `json:"kind"`
	StartedAt time.Time       `json:"started_at"`
	ElapsedMs int64           `json:"elapsed_ms"`
	ExitCode  int             `json:"exit_code"`
	Stdout    string          `json:"stdout,omitempty"`
	Stderr    string          `json:"stderr,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
	Truncated bool            `json:"truncated,omitempty"`
}

// Store persists and retrieves run records.
type Store interface {
	Save(rec *RunRecord) error
	Load(runID string) (*RunRecord, error)
}

// FromOutcome builds a storable record from an invocation outcome,
// trimming the captured streams to a bounded rectangle.
func FromOutcome(out *runner.Outcome) *RunRecord {
	return &RunRecord{
		ID:        out.RunID,
		Kind:      out.Kind,
		StartedAt: time.Now().Add(-time.Duration(out.ElapsedMs) * time.Millisecond),
		ElapsedMs: out.ElapsedMs,
		ExitCode:  out.ExitCode,
		Stdout:    trimToRect(out.Stdout, storedStreamLines, storedStreamCols),
		Stderr:    trimToRect(out.Stderr, storedStreamLines, storedStreamCols),
		Payload:   out.Payload,
		Error:     out.Err,
		Truncated: out.Truncated,
	}
}

// trimToRect keeps at most maxLines lines of at most maxCols characters
// each, marking every cut with an ellipsis.
func trimToRect(s string, maxLines, maxCols int) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	clipped := false
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		clipped = true
	}
	for i, line := range lines {
		if len(line) > maxCols {
			lines[i] = line[:maxCols] + "..."
		}
	}
	out := strings.Join(lines, "\n")
	if clipped {
		out += "\n..."
	}
	return out
}
