package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/handiism/gphotos-backup/internal/backup"
	"github.com/handiism/gphotos-backup/internal/config"
	"github.com/handiism/gphotos-backup/internal/tui"
)

func main() {
	configPath := config.DefaultPath()
	if env := os.Getenv("GPHOTOS_CONFIG"); env != "" {
		configPath = env
	}

	var (
		configFlag = flag.String("config", configPath, "Path to the settings file")
		logFlag    = flag.String("log-file", "", "Write logs to this file (default: no logs)")
	)
	flag.Parse()

	settings, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs only go to a file.
	logger := zap.NewNop()
	if *logFlag != "" {
		settings.Log.File = *logFlag
	}
	if settings.Log.File != "" {
		if err := settings.Expand(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger, err = settings.Log.Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = logger.Sync() }()
	}

	runner, err := backup.NewRunner(settings, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := tui.Run(settings, runner); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
