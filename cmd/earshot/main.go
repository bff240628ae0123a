// Command earshot fronts an external audio classification worker with an
// HTTP endpoint, an MCP tool surface, and a one-shot CLI.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/earshot/earshot"
	"github.com/earshot/earshot/internal/api"
	"github.com/earshot/earshot/internal/classify"
	"github.com/earshot/earshot/internal/config"
	earmcp "github.com/earshot/earshot/internal/mcp"
	"github.com/earshot/earshot/internal/report"
	"github.com/earshot/earshot/internal/runner"
	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("earshot: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "serve":
		err = serveMain(args)
	case "mcp":
		err = mcpMain(args)
	case "classify":
		err = classifyMain(args)
	case "version":
		fmt.Println(earshot.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "earshot: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: earshot <command> [flags] [args]

Commands:
  serve       Start the HTTP classification endpoint
  mcp         Start the MCP server on stdio
  classify    Classify a local audio file and print the result
  version     Print the version
  help        Show this help

Use "earshot <command> -h" for command-specific flags.`)
}

// deps bundles the wired service, shared by all transports.
type deps struct {
	cfg   *config.Config
	svc   *classify.Service
	store report.Store
}

func buildDeps(logger *slog.Logger) (*deps, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	store := report.NewLRUStore(cfg.RecentRuns(), report.NewDiskStore())
	svc := &classify.Service{
		Runner: &runner.Runner{
			Timeout:   cfg.Timeout(),
			MaxOutput: cfg.MaxOutputBytes(),
		},
		Store:       store,
		Interpreter: cfg.Interpreter(),
		Script:      cfg.ScriptPath(loaded.RepoRoot),
		Log:         logger,
	}
	return &deps{cfg: cfg, svc: svc, store: store}, nil
}

// --- serve ---

func serveMain(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	httpAddr := fs.String("http", "", "listen address (overrides config, e.g. :8787)")
	withMCP := fs.Bool("mcp", false, "also mount the MCP streamable handler at /mcp")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		TimeFormat: time.Kitchen,
	}))

	d, err := buildDeps(logger)
	if err != nil {
		return err
	}

	addr := d.cfg.ListenAddr()
	if *httpAddr != "" {
		addr = *httpAddr
	}

	opts := api.Options{
		Addr:          addr,
		WorkerTimeout: d.cfg.Timeout(),
		Logger:        logger,
	}
	if *withMCP {
		server := earmcp.NewServer(d.svc, d.store)
		opts.MCPHandler = mcpsdk.NewStreamableHTTPHandler(
			func(_ *http.Request) *mcpsdk.Server { return server },
			nil,
		)
	}

	srv := api.NewServer(d.svc, d.store, opts)
	srv.Start()

	<-ctx.Done()
	logger.Info("shutting down")
	return srv.Stop(context.Background())
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(earmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d, err := buildDeps(nil)
	if err != nil {
		return err
	}

	server := earmcp.NewServer(d.svc, d.store)
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

// --- classify ---

func classifyMain(args []string) error {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	name := fs.String("name", "", "filename reported to the worker (defaults to the file's base name)")
	timeout := fs.Duration("timeout", 0, "override the configured worker deadline (e.g. 30s)")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: earshot classify [flags] <audio-file>")
	}
	path := fs.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	d, err := buildDeps(nil)
	if err != nil {
		return err
	}
	if *timeout > 0 {
		d.svc.Runner = &runner.Runner{
			Timeout:   *timeout,
			MaxOutput: d.cfg.MaxOutputBytes(),
		}
	}

	filename := *name
	if filename == "" {
		filename = filepath.Base(path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := d.svc.Classify(ctx, classify.Request{
		AudioData: base64.StdEncoding.EncodeToString(data),
		Filename:  filename,
	})
	if err != nil {
		return err
	}

	if !printOutcome(out) {
		os.Exit(1)
	}
	return nil
}

// printOutcome reports one outcome on the terminal and returns whether
// it was a success.
func printOutcome(out *runner.Outcome) bool {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	switch out.Kind {
	case runner.Success:
		fmt.Fprintf(os.Stderr, "%s run %s (%d ms)\n", green("ok"), out.RunID, out.ElapsedMs)
		fmt.Println(string(out.Payload))
		return true
	case runner.ParseFailure:
		fmt.Fprintf(os.Stderr, "%s run %s: no parseable result in worker output\n", red("FAIL"), out.RunID)
		fmt.Fprint(os.Stderr, out.Stdout)
		fmt.Fprint(os.Stderr, out.Stderr)
	case runner.ProcessFailure:
		fmt.Fprintf(os.Stderr, "%s run %s: worker exited with code %d\n", red("FAIL"), out.RunID, out.ExitCode)
		fmt.Fprint(os.Stderr, out.Stdout)
		fmt.Fprint(os.Stderr, out.Stderr)
	case runner.Timeout:
		fmt.Fprintf(os.Stderr, "%s run %s: worker killed after %d ms\n", yellow("TIMEOUT"), out.RunID, out.ElapsedMs)
	default:
		fmt.Fprintf(os.Stderr, "%s run %s: %s\n", red("ERROR"), out.RunID, out.Err)
	}
	return false
}
