package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mgomes/sdlang/sd"
)

func main() {
	if err := runCLI(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch args[1] {
	case "run":
		return runCommand(args[2:])
	case "tokens":
		return tokensCommand(args[2:])
	case "fmt":
		return fmtCommand(args[2:])
	case "analyze":
		return analyzeCommand(args[2:])
	case "repl":
		return replCommand(args[2:])
	case "lsp":
		return runLSP()
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	trace := fs.Bool("trace", false, "log statement events")
	traceTokens := fs.Bool("trace-tokens", false, "also log every token")
	lang := fs.String("lang", "", "message language (ja or en)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("sd run: script path required")
	}
	scriptPath, input, err := readScript(remaining[0])
	if err != nil {
		return err
	}
	cfg, err := findConfig(filepath.Dir(scriptPath))
	if err != nil {
		return err
	}
	if *lang != "" {
		cfg.Lang = *lang
	}
	cfg.Trace = cfg.Trace || *trace
	cfg.TraceTokens = cfg.TraceTokens || *traceTokens

	msgs, err := newMessages(cfg.Lang)
	if err != nil {
		return err
	}
	proc := sd.NewProcessor(cfg.processorConfig(os.Stdout))
	if err := proc.Exec(context.Background(), bytes.NewReader(input)); err != nil {
		return msgs.wrap(err)
	}
	return nil
}

func readScript(path string) (string, []byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", nil, fmt.Errorf("resolve script path: %w", err)
	}
	input, err := os.ReadFile(abs)
	if err != nil {
		return "", nil, fmt.Errorf("read script: %w", err)
	}
	return abs, input, nil
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags] [script]\n", prog)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run [-trace] [-trace-tokens] [-lang ja|en] <script>")
	fmt.Fprintln(os.Stderr, "    execute a script")
	fmt.Fprintln(os.Stderr, "  tokens [-format table|yaml] [-lang ja|en] <script>")
	fmt.Fprintln(os.Stderr, "    print the token stream of a script")
	fmt.Fprintln(os.Stderr, "  fmt [-w] [-check] <path>...")
	fmt.Fprintln(os.Stderr, "    indent blocks and trim trailing blanks in .sd files")
	fmt.Fprintln(os.Stderr, "  analyze [-lang ja|en] <script>")
	fmt.Fprintln(os.Stderr, "    report block structure problems and unreachable statements")
	fmt.Fprintln(os.Stderr, "  repl [-lang ja|en]")
	fmt.Fprintln(os.Stderr, "    start an interactive session")
	fmt.Fprintln(os.Stderr, "  lsp")
	fmt.Fprintln(os.Stderr, "    serve diagnostics, completion and hover over stdio")
	fmt.Fprintln(os.Stderr, "Settings are read from the nearest sd.toml above the script.")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}
