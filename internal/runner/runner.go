// Package runner executes one external worker process per call, captures
// its output streams, enforces a hard deadline, and recovers a trailing
// JSON result from the worker's mixed diagnostic output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// Default limits applied when the Runner fields are left zero.
const (
	DefaultTimeout   = 60 * time.Second
	DefaultMaxOutput = 1 << 20 // 1 MB per stream
)

// Invocation names the worker executable and its ordered arguments.
// Immutable once constructed.
type Invocation struct {
	Path string
	Args []string
}

// Runner executes worker invocations with a deadline and per-stream
// output caps. The zero value uses DefaultTimeout and DefaultMaxOutput.
// A Runner holds no per-invocation state; concurrent Run calls are
// independent.
type Runner struct {
	Timeout   time.Duration
	MaxOutput int // bytes, per stream
}

// Run executes one invocation to completion or deadline and returns
// exactly one Outcome. The effective deadline is the shorter of the
// Runner's Timeout and any deadline already carried by ctx. On expiry
// the process is killed; output arriving after the kill dies with the
// pipes and is never appended.
func (r *Runner) Run(ctx context.Context, inv Invocation) *Outcome {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := r.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	cmd := exec.CommandContext(ctx, inv.Path, inv.Args...)
	// A killed worker can leave grandchildren holding the output pipes;
	// WaitDelay bounds how long Run waits for them before the streams
	// are closed and any late output is discarded.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: maxOutput}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: maxOutput}

	runErr := cmd.Run()

	out := &Outcome{
		RunID:     uuid.New().String(),
		ElapsedMs: time.Since(start).Milliseconds(),
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.Len() >= maxOutput || stderr.Len() >= maxOutput,
	}

	// The deadline check comes before the exit-code check: a killed
	// process also surfaces as an ExitError, and no Success or
	// ParseFailure may be produced once the deadline has fired.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		out.Kind = Timeout
		return out
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			out.Kind = ProcessFailure
			out.ExitCode = exitErr.ExitCode()
			return out
		}
		// Executable not found, or the process could not be wired up.
		out.Kind = InternalError
		out.Err = runErr.Error()
		return out
	}

	payload, ok := ExtractTrailingJSON(stdout.Bytes())
	if !ok {
		out.Kind = ParseFailure
		return out
	}
	out.Kind = Success
	out.Payload = payload
	return out
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
