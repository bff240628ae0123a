package runner

import "encoding/json"

// Kind identifies which case of an Outcome is active.
type Kind string

const (
	// Success means the worker exited 0 and a trailing JSON value was
	// extracted from its stdout.
	Success Kind = "success"
	// ParseFailure means the worker exited 0 but no valid trailing JSON
	// value was found.
	ParseFailure Kind = "parse_failure"
	// ProcessFailure means the worker exited with a non-zero status.
	ProcessFailure Kind = "process_failure"
	// Timeout means the deadline fired and the worker was killed.
	Timeout Kind = "timeout"
	// InternalError means the invocation itself could not be started.
	InternalError Kind = "internal_error"
)

// Outcome is the tagged result of one invocation attempt. Exactly one
// Kind is active; the fields below it are populated per kind. Stdout and
// Stderr carry the captured streams verbatim for Success, ParseFailure
// and ProcessFailure, and whatever partial output was collected for
// Timeout and InternalError.
type Outcome struct {
	RunID string `json:"run_id"`
	Kind  Kind   `json:"kind"`

	Payload  json.RawMessage `json:"payload,omitempty"` // Success
	ExitCode int             `json:"exit_code"`         // ProcessFailure
	Err      string          `json:"error,omitempty"`   // InternalError

	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Truncated bool   `json:"truncated"` // a stream hit the output cap
}
