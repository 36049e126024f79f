package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/handiism/gphotos-backup/internal/backup"
	"github.com/handiism/gphotos-backup/internal/organize"
	"github.com/handiism/gphotos-backup/internal/report"
)

func (a *app) cmdBackup() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Download the whole library and organize it (default)",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Do not ask for confirmation",
				Sources: cli.EnvVars("GPHOTOS_YES"),
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return a.backup(ctx, c.Bool("yes"))
		},
	}
}

func (a *app) cmdAuth() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize access to the library and exit",
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := a.runner.Authenticate(ctx, a.hooks(os.Stdout)); err != nil {
				return err
			}
			fmt.Println("Authorized. Token saved to", a.runner.Auth().TokenPath())
			return nil
		},
	}
}

func (a *app) cmdList() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Show library statistics by year and month",
		Action: func(ctx context.Context, c *cli.Command) error {
			items, err := a.runner.Catalog(ctx, a.hooks(os.Stdout))
			if err != nil {
				return err
			}
			fmt.Print(report.Summary(organize.Statistics(organize.Categorize(items))))
			return nil
		},
	}
}

func (a *app) cmdAlbums() *cli.Command {
	return &cli.Command{
		Name:  "albums",
		Usage: "List albums",
		Action: func(ctx context.Context, c *cli.Command) error {
			albums, err := a.runner.Albums(ctx, a.hooks(os.Stdout))
			if err != nil {
				return err
			}
			fmt.Print(report.Albums(albums))
			return nil
		},
	}
}

func (a *app) cmdRevoke() *cli.Command {
	return &cli.Command{
		Name:  "revoke",
		Usage: "Delete the cached token",
		Action: func(ctx context.Context, c *cli.Command) error {
			removed, err := a.runner.Revoke()
			if err != nil {
				return err
			}
			if removed {
				fmt.Println("Token deleted.")
			} else {
				fmt.Println("No token to delete.")
			}
			return nil
		},
	}
}

func (a *app) cmdClean() *cli.Command {
	return &cli.Command{
		Name:  "clean",
		Usage: "Remove leftover files from the staging directory",
		Action: func(ctx context.Context, c *cli.Command) error {
			n, err := a.runner.Clean()
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d file(s) from %s\n", n, a.settings.StagingDir)
			return nil
		},
	}
}

func (a *app) cmdInit() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write the effective settings to the settings file",
		Action: func(ctx context.Context, c *cli.Command) error {
			path := c.String(flagConfig)
			if err := a.settings.Save(path); err != nil {
				return err
			}
			fmt.Println("Settings written to", path)
			return nil
		},
	}
}

func (a *app) backup(ctx context.Context, yes bool) error {
	hooks := a.hooks(os.Stdout)
	hooks.OnProgress = func(completed, total int) {
		fmt.Printf("\rDownloaded %d/%d", completed, total)
		if completed == total {
			fmt.Println()
		}
	}
	hooks.Confirm = func(stats organize.Stats) bool {
		fmt.Print(report.Summary(stats))
		if yes {
			return true
		}
		return confirm(os.Stdin, os.Stdout, "Start the backup?")
	}

	rep, err := a.runner.Run(ctx, hooks)
	if err != nil {
		return goerr.Wrap(err, "backup failed")
	}
	if rep.Declined || rep.Stats.Total == 0 {
		return nil
	}

	fmt.Print(report.CompletionReport(report.Completion{
		Download:  rep.Download,
		Organize:  rep.Organize,
		BackupDir: a.settings.BackupDir,
		Elapsed:   rep.Elapsed,
	}))
	return nil
}

func (a *app) hooks(w io.Writer) backup.Hooks {
	return backup.Hooks{
		OnEvent: func(e backup.Event) {
			if e.Level == backup.LevelVerbose {
				return
			}
			fmt.Fprintln(w, e.Message)
		},
		Prompt: func(authURL string) {
			fmt.Fprintf(w, "Open the following URL in your browser to authorize access:\n\n%s\n\n", authURL)
		},
	}
}

// confirm asks a yes/no question; an empty answer means yes.
func confirm(r io.Reader, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s [Y/n] ", question)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return true
	default:
		return false
	}
}
