// Package cli implements the gphotos-backup command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/handiism/gphotos-backup/internal/backup"
	"github.com/handiism/gphotos-backup/internal/config"
)

// app carries state shared by the subcommands.
type app struct {
	settings *config.Settings
	logger   *zap.Logger
	runner   *backup.Runner
}

// Run runs the CLI application
func Run(ctx context.Context, args []string) error {
	a := &app{}

	root := &cli.Command{
		Name:  "gphotos-backup",
		Usage: "Back up a Google Photos library into year/month folders",
		Flags: globalFlags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, a.setup(c)
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			a.cmdBackup(),
			a.cmdAuth(),
			a.cmdList(),
			a.cmdAlbums(),
			a.cmdRevoke(),
			a.cmdClean(),
			a.cmdInit(),
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return a.backup(ctx, false)
		},
	}

	if err := root.Run(ctx, args); err != nil {
		if a.logger != nil {
			a.logger.Error("CLI execution failed", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return err
	}

	return nil
}

func (a *app) setup(c *cli.Command) error {
	settings, err := loadSettings(c)
	if err != nil {
		return err
	}

	logger, err := settings.Log.Build()
	if err != nil {
		return err
	}

	runner, err := backup.NewRunner(settings, logger)
	if err != nil {
		return err
	}

	a.settings = settings
	a.logger = logger
	a.runner = runner
	return nil
}
