// Command pluginrun invokes one catalog handler in-process against an
// execution context read from a JSON or YAML file, and prints its trace.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/thinkcrm/plugincore/internal/host"
	"github.com/thinkcrm/plugincore/internal/platform/config"
	"github.com/thinkcrm/plugincore/internal/platform/telemetry"
	"github.com/thinkcrm/plugincore/internal/xrm"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pluginrun", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "optional YAML config file with a plugins section")
	handler := fs.String("handler", "", "catalog name of the handler to invoke")
	contextPath := fs.String("context", "", "execution context file (.json, .yaml or .yml)")
	printContext := fs.Bool("print-context", false, "print the execution context after the run")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *handler == "" || *contextPath == "" {
		fmt.Fprintln(stderr, "usage: pluginrun -handler name -context file [-config file] [-print-context]")
		return exitUsage
	}

	var paths []string
	if *configPath != "" {
		paths = append(paths, *configPath)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		fmt.Fprintf(stderr, "error: loading config: %v\n", err)
		return exitUsage
	}

	ec, err := readContext(*contextPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	catalog, err := host.BuiltinCatalog(cfg.Plugins)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	// Trace lines go to stdout; the process logger only reports problems.
	h := host.New(catalog, host.WithLogger(telemetry.NewLogger("warn", "text", stderr)))

	res, err := h.Invoke(context.Background(), *handler, ec, "pluginrun")
	if err != nil {
		fmt.Fprintf(stderr, "error: %v (available: %s)\n", err, strings.Join(catalog.Names(), ", "))
		return exitUsage
	}

	for _, line := range res.Trace {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintf(stdout, "outcome: %s invocation: %s elapsed: %s\n", res.Outcome, res.InvocationID, res.Elapsed)
	if *printContext {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(ec); err != nil {
			fmt.Fprintf(stderr, "error: encoding context: %v\n", err)
		}
	}
	if res.Err != nil {
		fmt.Fprintf(stderr, "failure: %v\n", res.Err)
		return exitFailure
	}
	return exitOK
}

func readContext(path string) (*xrm.ExecutionContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading context: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return xrm.DecodeContextYAML(data)
	default:
		return xrm.DecodeContextJSON(data)
	}
}
