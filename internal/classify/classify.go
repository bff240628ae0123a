// Package classify is the calling context around the worker runner: it
// validates requests, builds the classifier invocation, and records each
// run.
package classify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/earshot/earshot/internal/report"
	"github.com/earshot/earshot/internal/runner"
)

// DefaultFilename is used when a request does not name its audio file.
const DefaultFilename = "uploaded_audio"

// ErrEmptyAudio is returned when a request carries no audio payload.
// Validation happens before any process is spawned.
var ErrEmptyAudio = errors.New("audioData is required")

// Request is one classification request. AudioData is the encoded audio
// payload handed to the worker as-is.
type Request struct {
	AudioData string `json:"audioData"`
	Filename  string `json:"filename"`
}

// ProcessRunner executes one worker invocation. Implemented by
// runner.Runner.
type ProcessRunner interface {
	Run(ctx context.Context, inv runner.Invocation) *runner.Outcome
}

// Service invokes the external classifier for validated requests.
type Service struct {
	Runner      ProcessRunner
	Store       report.Store // optional; runs are recorded when set
	Interpreter string       // e.g. "python3"
	Script      string       // classifier script path
	ExtraArgs   []string     // interpreter flags placed before the script
	Log         *slog.Logger // optional
}

// Classify runs the worker for one request. The worker is invoked as
// <interpreter> [extra args] <script> <audioData> <filename>. It returns
// ErrEmptyAudio without spawning anything when the payload is empty;
// every spawned invocation yields exactly one Outcome.
func (s *Service) Classify(ctx context.Context, req Request) (*runner.Outcome, error) {
	if req.AudioData == "" {
		return nil, ErrEmptyAudio
	}
	filename := req.Filename
	if filename == "" {
		filename = DefaultFilename
	}

	args := make([]string, 0, len(s.ExtraArgs)+3)
	args = append(args, s.ExtraArgs...)
	args = append(args, s.Script, req.AudioData, filename)

	out := s.Runner.Run(ctx, runner.Invocation{Path: s.Interpreter, Args: args})

	if s.Log != nil {
		s.Log.Info("classification finished",
			"run_id", out.RunID,
			"kind", string(out.Kind),
			"filename", filename,
			"elapsed_ms", out.ElapsedMs,
		)
	}

	if s.Store != nil {
		if err := s.Store.Save(report.FromOutcome(out)); err != nil && s.Log != nil {
			s.Log.Warn("failed to record run", "run_id", out.RunID, "error", err)
		}
	}
	return out, nil
}
