// Command etl runs one batch pipeline: extract the raw payload, normalize it,
// load it into the configured store, and render the ranking chart.
//
// All settings come from the environment (see internal/config). The process
// exits 0 when every stage succeeded, 1 otherwise, and 2 when the
// configuration is invalid.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"batchetl/internal/config"

	// register all backends with the storage factory.
	_ "batchetl/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Getenv("ENV_FILE"), os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without the process exit.
func run(ctx context.Context, envFile string, stderr io.Writer) int {
	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fmt.Fprintln(stderr, "configuration is invalid")
		return 2
	}

	log, closeLog, err := newLogger(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "logging: %v\n", err)
		return 2
	}
	defer closeLog()

	flush := setupMetrics(cfg, log)
	defer flush()

	o, err := buildOrchestrator(cfg, log, now())
	if err != nil {
		log.Error("pipeline: build failed", "error", err)
		return 2
	}
	return o.Run(ctx).ExitCode()
}
