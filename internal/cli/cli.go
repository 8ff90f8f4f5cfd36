package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/framegraph/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
//
// Values are layered: built-in defaults, then the -config file, then every
// flag given explicitly on the command line.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("framegraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
Framegraph - A dataflow graph engine for frame-by-frame image processing.

Usage:
  framegraph [options] [PIPELINE_PATH]

Arguments:
  PIPELINE_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Without -listen the pipeline's sink nodes are evaluated once, or once per
frame with -play-interval, and their values are logged.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to a YAML configuration file.")
	pipelineFlag := flagSet.String("pipeline", "", "Path to the pipeline file or directory.")
	pFlag := flagSet.String("p", "", "Path to the pipeline file or directory (shorthand).")
	snapshotFlag := flagSet.String("snapshot", "", "Path to a snapshot JSON file to start from.")
	framesFlag := flagSet.String("frames", "", "Directory of image files forming the frame sequence.")
	fFlag := flagSet.String("f", "", "Directory of image files (shorthand).")
	loopFlag := flagSet.Bool("loop", true, "Wrap frame indices past the end of the sequence.")
	cacheFlag := flagSet.Int("cache-size", 0, "Number of decoded frames to keep in memory. 0 uses the default.")
	watchFlag := flagSet.Bool("watch", false, "Rescan the frames directory when files change.")
	playFlag := flagSet.Duration("play-interval", 0, "Advance one frame per interval, e.g. 40ms. 0 is disabled.")
	listenFlag := flagSet.String("listen", "", "Address for the HTTP API, e.g. :8080. Empty runs in batch mode.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	storeDirFlag := flagSet.String("store-dir", "", "Directory for named snapshots.")
	databaseFlag := flagSet.String("database-url", "", "PostgreSQL connection string for named snapshots.")
	previewFlag := flagSet.String("preview-url", "", "Socket.IO server that receives node events.")
	previewNSFlag := flagSet.String("preview-namespace", "/", "Socket.IO namespace for node events.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	cfg := app.Config{
		Loop:             true,
		PreviewNamespace: "/",
		LogFormat:        "json",
		LogLevel:         "info",
	}
	if *configFlag != "" {
		fc, err := app.LoadFile(*configFlag)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		fc.Apply(&cfg)
		slog.Debug("Configuration file applied.", "path", *configFlag)
	}

	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "pipeline":
			cfg.PipelinePath = *pipelineFlag
		case "p":
			cfg.PipelinePath = *pFlag
		case "snapshot":
			cfg.SnapshotPath = *snapshotFlag
		case "frames":
			cfg.FramesDir = *framesFlag
		case "f":
			cfg.FramesDir = *fFlag
		case "loop":
			cfg.Loop = *loopFlag
		case "cache-size":
			cfg.CacheSize = *cacheFlag
		case "watch":
			cfg.Watch = *watchFlag
		case "play-interval":
			cfg.PlayInterval = *playFlag
		case "listen":
			cfg.ListenAddr = *listenFlag
		case "healthcheck-port":
			cfg.HealthcheckPort = *healthPortFlag
		case "store-dir":
			cfg.StoreDir = *storeDirFlag
		case "database-url":
			cfg.DatabaseURL = *databaseFlag
		case "preview-url":
			cfg.PreviewURL = *previewFlag
		case "preview-namespace":
			cfg.PreviewNamespace = *previewNSFlag
		case "log-format":
			cfg.LogFormat = *logFormatFlag
		case "log-level":
			cfg.LogLevel = *logLevelFlag
		}
	})
	if cfg.PipelinePath == "" && flagSet.NArg() > 0 {
		cfg.PipelinePath = flagSet.Arg(0)
	}
	slog.Debug("Pipeline path determined.", "path", cfg.PipelinePath)

	if cfg.PipelinePath == "" && cfg.SnapshotPath == "" && cfg.ListenAddr == "" {
		slog.Debug("Nothing to load or serve, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
