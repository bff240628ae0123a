package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/earshot/earshot"
	"github.com/earshot/earshot/internal/classify"
	"github.com/earshot/earshot/internal/runner"
)

// handleClassify maps a classification outcome onto the HTTP contract:
// 200 with the worker's JSON passed through verbatim, 400 for a missing
// payload, 408 for a deadline kill, 500 for everything else.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classify.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, struct {
			Error string `json:"error"`
		}{"invalid JSON body"})
		return
	}

	out, err := s.svc.Classify(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, classify.ErrEmptyAudio) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, struct {
			Error string `json:"error"`
		}{err.Error()})
		return
	}

	switch out.Kind {
	case runner.Success:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out.Payload)

	case runner.ParseFailure:
		writeJSON(w, http.StatusInternalServerError, struct {
			Error  string `json:"error"`
			Stdout string `json:"stdout"`
			Stderr string `json:"stderr"`
		}{"classifier produced no parseable result", out.Stdout, out.Stderr})

	case runner.ProcessFailure:
		writeJSON(w, http.StatusInternalServerError, struct {
			Error  string `json:"error"`
			Code   int    `json:"code"`
			Stdout string `json:"stdout"`
			Stderr string `json:"stderr"`
		}{"classifier exited with an error", out.ExitCode, out.Stdout, out.Stderr})

	case runner.Timeout:
		writeJSON(w, http.StatusRequestTimeout, struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}{"classification timed out", fmt.Sprintf("worker killed after %d ms", out.ElapsedMs)})

	default: // runner.InternalError
		writeJSON(w, http.StatusInternalServerError, struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}{"failed to invoke classifier", out.Err})
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := s.store.Load(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, struct {
			Error string `json:"error"`
		}{fmt.Sprintf("run %s not found", id)})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
	}{"ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Version string `json:"version"`
	}{earshot.Version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
