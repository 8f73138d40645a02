// Package main provides the CLI entry point for dashcamd.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/five82/dashcamd/internal/config"
	"github.com/five82/dashcamd/internal/engine"
	"github.com/five82/dashcamd/internal/logging"
	"github.com/five82/dashcamd/internal/plog"
	"github.com/five82/dashcamd/internal/processor"
	"github.com/five82/dashcamd/internal/reporter"
	"github.com/five82/dashcamd/internal/sink"
)

const (
	appName    = "dashcamd"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		if err := runPipeline(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, appVersion)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - dashcam license-plate recognition pipeline

Usage:
  %s <command> [options]

Commands:
  run       Ingest a directory of dashcam footage
  version   Print version information
  help      Show this help message

Run '%s run --help' for run command options.
`, appName, appName, appName)
}

// runArgs holds the parsed arguments for the run command.
type runArgs struct {
	inputDir    string
	logDir      string
	verbose     bool
	noLog       bool
	sinkKind    string
	sinkPath    string
	metricsAddr string
}

func runPipeline(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Ingest a directory of dashcam footage.

Usage:
  %s run [options]

Required:
  -i, --input <PATH>     Directory containing dashcam video files

Options:
  -l, --log-dir <PATH>   Log directory (defaults to ~/.local/state/dashcamd/logs)
  -v, --verbose          Enable verbose output for troubleshooting
  --no-log               Disable the run-log file
  --sink <log|bunt>      Record sink backend. Default: log
  --sink-path <PATH>     buntdb file path when --sink=bunt. Default: dashcamd.db
  --metrics-addr <ADDR>  Serve prometheus /metrics on ADDR (e.g. :9090). Default: disabled
`, appName)
	}

	var ra runArgs
	fs.StringVar(&ra.inputDir, "i", "", "Input directory")
	fs.StringVar(&ra.inputDir, "input", "", "Input directory")
	fs.StringVar(&ra.logDir, "l", "", "Log directory")
	fs.StringVar(&ra.logDir, "log-dir", "", "Log directory")
	fs.BoolVar(&ra.verbose, "v", false, "Enable verbose output")
	fs.BoolVar(&ra.verbose, "verbose", false, "Enable verbose output")
	fs.BoolVar(&ra.noLog, "no-log", false, "Disable log file creation")
	fs.StringVar(&ra.sinkKind, "sink", "log", "Record sink backend (log|bunt)")
	fs.StringVar(&ra.sinkPath, "sink-path", "dashcamd.db", "buntdb file path")
	fs.StringVar(&ra.metricsAddr, "metrics-addr", "", "Serve prometheus /metrics on ADDR")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if ra.inputDir == "" {
		return fmt.Errorf("input directory is required (-i/--input)")
	}

	return executeRun(ra)
}

func executeRun(ra runArgs) error {
	inputDir, err := filepath.Abs(ra.inputDir)
	if err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	if _, err := os.Stat(inputDir); err != nil {
		return fmt.Errorf("input directory does not exist: %s", inputDir)
	}

	logDir := ra.logDir
	if logDir == "" {
		logDir = logging.DefaultLogDir()
	}
	fileLogger, err := logging.Setup(logDir, ra.verbose, ra.noLog, os.Args)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if fileLogger != nil {
		defer func() { _ = fileLogger.Close() }()
	}

	logger, err := plog.NewConsole(os.Stderr, ra.verbose)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.NewConfig(inputDir)
	cfg.Verbose = ra.verbose
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sk, closeSink, err := buildSink(ra, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeSink() }()

	termRep := reporter.NewTerminalReporterVerbose(ra.verbose)
	var rep reporter.Reporter = termRep
	if fileLogger != nil {
		logRep := reporter.NewLogReporter(fileLogger.Writer())
		rep = reporter.NewCompositeReporter(termRep, logRep)
	}

	eng, err := engine.New(cfg, logger, rep, sk, engine.Models{
		Detector:      processor.NullDetector{},
		PlateDetector: processor.NullPlateDetector{},
		OCREngine:     processor.NullOCREngine{},
	})
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}
	defer eng.Close()

	if ra.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(eng.Metrics().Registry(), promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: ra.metricsAddr, Handler: mux}
		go func() { _ = srv.ListenAndServe() }()
		defer func() { _ = srv.Close() }()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		eng.Stop()
		cancel()
	}()

	_, err = eng.Run(ctx)
	return err
}

// buildSink constructs the selected Sink backend. The "log" sink gets its
// own logger (rather than reusing the engine's console logger) so
// FINAL_WRITE records are tagged distinctly in --verbose output.
func buildSink(ra runArgs, logger *zap.Logger) (sink.Sink, func() error, error) {
	switch ra.sinkKind {
	case "log":
		sk := sink.NewLogSink(logger.Named("final_write"))
		return sk, sk.Close, nil
	case "bunt":
		sk, err := sink.NewBuntSink(ra.sinkPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sink: %w", err)
		}
		return sk, sk.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown --sink %q (want log or bunt)", ra.sinkKind)
	}
}
