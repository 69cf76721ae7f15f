// TestRail Reporter - Entry Point
//
// This is the main entry point for the TestRail results reporter. The
// reporter bridges a test execution run and TestRail:
//   - Parses a `go test -json` event stream (file or stdin)
//   - Matches tests against the case map to find marked test items
//   - Resolves the publish target (configured run, plan, or a freshly
//     created run seeded with the collected case ids)
//   - Records one result per (test item, case id), then publishes the batch
//     at session end, recovering from service-side rejections
//
// Configuration is loaded from testrail.yaml (or the path given via -config).
//
// Lifecycle:
//  1. Load configuration from YAML file
//  2. Setup structured JSON logger
//  3. Open the result journal if configured
//  4. Parse the event stream and bind tests to markers (collection)
//  5. Resolve run/plan target, record results
//  6. Publish at session finish, close run/plan if configured
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/qaops/testrail-reporter/internal/config"
	"github.com/qaops/testrail-reporter/internal/ingest"
	"github.com/qaops/testrail-reporter/internal/journal"
	"github.com/qaops/testrail-reporter/internal/logging"
	"github.com/qaops/testrail-reporter/internal/report"
	"github.com/qaops/testrail-reporter/internal/sysinfo"
	"github.com/qaops/testrail-reporter/internal/testrail"
	"github.com/qaops/testrail-reporter/internal/version"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "path to configuration file")
	inputPath := flag.String("input", "-", "go test -json stream to read (\"-\" for stdin)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Use basic stderr logging before logger is configured
		fmt.Fprintf(os.Stderr, "ERROR: failed to load configuration from %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	logger := logging.SetupLogger(cfg.LogLevel)

	logger.Info("reporter starting",
		slog.String("version", version.Version),
		slog.String("config_path", *configPath),
		slog.String("server_url", cfg.ServerURL),
		slog.Int("run_id", cfg.RunID),
		slog.Int("plan_id", cfg.PlanID),
	)

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg, *inputPath, logger); err != nil {
		logger.Error("reporter failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, inputPath string, logger *slog.Logger) error {
	var input io.Reader = os.Stdin
	if inputPath != "-" {
		f, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		input = f
	}

	results, err := ingest.Parse(input)
	if err != nil {
		return err
	}
	logger.Info("parsed test results", slog.Int("count", len(results)))

	cmap, err := ingest.LoadCaseMap(cfg.CaseMap)
	if err != nil {
		return err
	}

	bound, err := ingest.Bind(results, cmap)
	if err != nil {
		return err
	}
	logger.Info("tests bound to testrail cases", slog.Int("count", len(bound)))

	var jnl *journal.Journal
	if cfg.JournalPath != "" {
		jnl, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("failed to open result journal: %w", err)
		}
		defer jnl.Close()

		if pending, err := jnl.Count(); err == nil && pending > 0 {
			logger.Warn("journal holds results from an unfinished session",
				slog.Int("count", pending),
				slog.String("path", cfg.JournalPath),
			)
		}
	}

	client := testrail.NewClient(cfg.ServerURL, cfg.Username, cfg.APIKey, logger)
	recorder := report.NewRecorder(jnl, logger)
	reporter := report.NewReporter(client, cfg, recorder, jnl, logger)

	if snap, err := sysinfo.Collect(ctx); err == nil {
		reporter.SetEnvDescription(snap.Describe())
	}

	items := make([]*report.Item, 0, len(bound))
	for _, b := range bound {
		items = append(items, b.Item)
	}
	reporter.HandleCollection(ctx, items)

	for _, b := range bound {
		if b.Item.Skip {
			logger.Info("skipping test not present in testrun",
				slog.String("item", b.Item.Name),
			)
			continue
		}

		failure := ""
		if b.Result.Outcome != "passed" {
			failure = b.Result.Output
		}
		reporter.HandleTestResult(b.Item, "call", b.Result.Outcome, b.Result.Elapsed, failure, b.Result.Params)
	}

	return reporter.HandleSessionFinish(ctx)
}
