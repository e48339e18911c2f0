// Command ctlm-console is an interactive ground console for a set of
// command and telemetry definitions.
//
// It loads every target definition in a directory and offers a prompt to
// build commands, identify telemetry buffers, inspect and overwrite the
// current value table, manage limits, and record or replay captures.
//
// Usage:
//
//	ctlm-console [flags]
//
// Flags:
//
//	-defs string       Directory of target definition files (default ".")
//	-state string      Limits state file (saved with "limits save")
//	-event-log string  File path for catalog event logging (CBOR format)
//	-event-categories string
//	                   Comma-separated event categories to log (default all)
//	-log-level string  Log level: debug, info, warn, error (default "info")
//	-exec string       Run one command line and exit
//
// Examples:
//
//	# Start the console on a definitions directory
//	ctlm-console -defs ./targets
//
//	# Keep limits settings across restarts and log events
//	ctlm-console -defs ./targets -state ~/.ctlm/limits.json -event-log console.clog
//
//	# Log only commands and limits changes
//	ctlm-console -defs ./targets -event-log console.clog -event-categories command,limits
//
//	# Build one command non-interactively
//	ctlm-console -defs ./targets -exec "cmd INST COLLECT TYPE=NORMAL DURATION=5"
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/ctlm-ground/ctlm-go/cmd/ctlm-console/interactive"
	"github.com/ctlm-ground/ctlm-go/pkg/log"
)

// Config holds the console configuration.
type Config struct {
	Definitions string
	StatePath   string
	EventLog    string
	Categories  string
	LogLevel    string
	Exec        string
}

var config Config

func init() {
	flag.StringVar(&config.Definitions, "defs", ".", "Directory of target definition files")
	flag.StringVar(&config.StatePath, "state", "", "Limits state file (saved with \"limits save\")")
	flag.StringVar(&config.EventLog, "event-log", "", "File path for catalog event logging (CBOR format)")
	flag.StringVar(&config.Categories, "event-categories", "", "Comma-separated event categories to log (default all)")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&config.Exec, "exec", "", "Run one command line and exit")
}

func main() {
	flag.Parse()

	level, err := parseLevel(config.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var loggers []log.Logger
	if level <= slog.LevelDebug {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}
	if config.EventLog != "" {
		categories, err := parseCategories(config.Categories)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fileLogger, err := log.NewFileLogger(config.EventLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create event logger: %v\n", err)
			os.Exit(1)
		}
		defer fileLogger.Close()
		loggers = append(loggers, log.NewCategoryLogger(fileLogger, categories...))
		logger.Info("event logging", "path", config.EventLog, "categories", config.Categories)
	}

	cfg := interactive.Config{
		Definitions: config.Definitions,
		StatePath:   config.StatePath,
		Logger:      logger,
		SessionID:   uuid.NewString(),
	}
	if len(loggers) > 0 {
		cfg.EventLogger = log.NewMultiLogger(loggers...)
	}

	console, err := interactive.New(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if config.Exec != "" {
		console.Exec(ctx, config.Exec)
		return
	}
	if err := console.Run(ctx, cancel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func parseCategories(s string) ([]log.Category, error) {
	if s == "" {
		return nil, nil
	}
	var out []log.Category
	for _, name := range strings.Split(s, ",") {
		c, err := log.ParseCategory(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
