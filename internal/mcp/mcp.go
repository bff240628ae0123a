// Package mcp exposes the classifier as MCP tools so agent clients can
// run classifications and fetch stored runs.
package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/earshot/earshot"
	"github.com/earshot/earshot/internal/classify"
	"github.com/earshot/earshot/internal/report"
	"github.com/earshot/earshot/internal/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	svc   *classify.Service
	store report.Store
}

// NewServer creates an MCP server with the earshot tools registered.
func NewServer(svc *classify.Service, store report.Store) *mcp.Server {
	h := &handler{svc: svc, store: store}

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "earshot", Version: earshot.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "earshot_classify",
		Description: `Classify an audio clip with the external worker.

Pass the audio as a base64 string. Returns the worker's JSON result on success;
failures carry the worker's diagnostic output.`,
	}, h.classifyHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "earshot_run",
		Description: "Fetch the stored record of a past classification run by its run ID.",
	}, h.runHandler)

	return s
}

type classifyParams struct {
	AudioData string `json:"audio_data,omitempty" jsonschema:"base64-encoded audio payload"`
	Filename  string `json:"filename,omitempty" jsonschema:"original filename, used for labelling only"`
}

func (h *handler) classifyHandler(ctx context.Context, req *mcp.CallToolRequest, params classifyParams) (*mcp.CallToolResult, any, error) {
	out, err := h.svc.Classify(ctx, classify.Request{
		AudioData: params.AudioData,
		Filename:  params.Filename,
	})
	if err != nil {
		if errors.Is(err, classify.ErrEmptyAudio) {
			return errorResult("audio_data is required")
		}
		return errorResult(fmt.Sprintf("classification failed: %v", err))
	}

	switch out.Kind {
	case runner.Success:
		return textResult(string(out.Payload))
	case runner.ParseFailure:
		return errorResult(fmt.Sprintf(
			"run %s: worker exited cleanly but produced no parseable result.\n\nstdout:\n%s\nstderr:\n%s",
			out.RunID, out.Stdout, out.Stderr))
	case runner.ProcessFailure:
		return errorResult(fmt.Sprintf(
			"run %s: worker exited with code %d.\n\nstdout:\n%s\nstderr:\n%s",
			out.RunID, out.ExitCode, out.Stdout, out.Stderr))
	case runner.Timeout:
		return errorResult(fmt.Sprintf("run %s: worker killed after %d ms", out.RunID, out.ElapsedMs))
	default:
		return errorResult(fmt.Sprintf("run %s: failed to invoke worker: %s", out.RunID, out.Err))
	}
}

type runParams struct {
	RunID string `json:"run_id,omitempty" jsonschema:"the run ID from a previous earshot_classify call"`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	rec, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to load run %s: %v", params.RunID, err))
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to encode run %s: %v", params.RunID, err))
	}
	return textResult(string(data))
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
