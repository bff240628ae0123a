package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/earshot/earshot/internal/classify"
	"github.com/earshot/earshot/internal/report"
	"github.com/earshot/earshot/internal/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// setup builds a full earshot MCP server + client over in-memory
// transports, backed by a shell script standing in for the worker.
func setup(t *testing.T, workerScript string) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	script := filepath.Join(dir, "worker.sh")
	if err := os.WriteFile(script, []byte(workerScript), 0o755); err != nil {
		t.Fatal(err)
	}

	store := report.NewLRUStore(4, report.NewDiskStore())
	svc := &classify.Service{
		Runner:      &runner.Runner{Timeout: 10 * time.Second},
		Store:       store,
		Interpreter: "sh",
		Script:      script,
	}
	server := NewServer(svc, store)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool %s: %v", name, err)
	}
	return res
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestClassifyTool_Success(t *testing.T) {
	cs := setup(t, "#!/bin/sh\necho 'Loading model...'\necho '{\"label\":\"speech\",\"confidence\":0.92}'\n")

	res := callTool(t, cs, "earshot_classify", map[string]any{"audio_data": "abc"})
	if res.IsError {
		t.Fatalf("IsError = true: %s", textOf(t, res))
	}
	if got := textOf(t, res); got != `{"label":"speech","confidence":0.92}` {
		t.Errorf("text = %q", got)
	}
}

func TestClassifyTool_MissingAudio(t *testing.T) {
	cs := setup(t, "#!/bin/sh\necho '{}'\n")

	res := callTool(t, cs, "earshot_classify", map[string]any{})
	if !res.IsError {
		t.Fatal("IsError = false, want true for missing audio_data")
	}
}

func TestClassifyTool_WorkerFailure(t *testing.T) {
	cs := setup(t, "#!/bin/sh\necho 'model load failed' >&2\nexit 4\n")

	res := callTool(t, cs, "earshot_classify", map[string]any{"audio_data": "abc"})
	if !res.IsError {
		t.Fatal("IsError = false, want true for worker failure")
	}
	text := textOf(t, res)
	if !strings.Contains(text, "code 4") {
		t.Errorf("text = %q, want exit code", text)
	}
	if !strings.Contains(text, "model load failed") {
		t.Errorf("text = %q, want stderr preserved", text)
	}
}

func TestRunTool(t *testing.T) {
	cs := setup(t, "#!/bin/sh\necho '{\"ok\":true}'\n")

	res := callTool(t, cs, "earshot_classify", map[string]any{"audio_data": "abc"})
	if res.IsError {
		t.Fatalf("classify failed: %s", textOf(t, res))
	}

	missing := callTool(t, cs, "earshot_run", map[string]any{"run_id": "does-not-exist"})
	if !missing.IsError {
		t.Fatal("IsError = false, want true for unknown run")
	}

	empty := callTool(t, cs, "earshot_run", map[string]any{})
	if !empty.IsError {
		t.Fatal("IsError = false, want true for empty run_id")
	}
}
