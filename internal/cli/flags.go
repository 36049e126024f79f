package cli

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/handiism/gphotos-backup/internal/config"
)

// Flag names shared by the flag definitions and settings overrides.
const (
	flagConfig          = "config"
	flagBackupDir       = "dest"
	flagStagingDir      = "staging-dir"
	flagCredentialsDir  = "credentials-dir"
	flagWorkers         = "workers"
	flagMaxAttempts     = "max-attempts"
	flagPageSize        = "page-size"
	flagOriginalQuality = "original-quality"
	flagRedirectPort    = "redirect-port"
	flagLogLevel        = "log-level"
	flagLogJSON         = "log-json"
	flagLogFile         = "log-file"
)

// globalFlags returns the flags that override settings file values.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Usage:   "Path to the settings file",
			Value:   config.DefaultPath(),
			Sources: cli.EnvVars("GPHOTOS_CONFIG"),
		},
		&cli.StringFlag{
			Name:    flagBackupDir,
			Aliases: []string{"backup-dir"},
			Usage:   "Backup root directory",
			Sources: cli.EnvVars("GPHOTOS_BACKUP_DIR"),
		},
		&cli.StringFlag{
			Name:    flagStagingDir,
			Usage:   "Directory downloads are staged in before organizing",
			Sources: cli.EnvVars("GPHOTOS_STAGING_DIR"),
		},
		&cli.StringFlag{
			Name:    flagCredentialsDir,
			Usage:   "Directory holding client_secret.json and token.json",
			Sources: cli.EnvVars("GPHOTOS_CREDENTIALS_DIR"),
		},
		&cli.IntFlag{
			Name:    flagWorkers,
			Usage:   "Number of parallel downloads",
			Sources: cli.EnvVars("GPHOTOS_WORKERS"),
		},
		&cli.IntFlag{
			Name:    flagMaxAttempts,
			Usage:   "Download attempts per file",
			Sources: cli.EnvVars("GPHOTOS_MAX_ATTEMPTS"),
		},
		&cli.IntFlag{
			Name:    flagPageSize,
			Usage:   "Catalog page size (1-100)",
			Sources: cli.EnvVars("GPHOTOS_PAGE_SIZE"),
		},
		&cli.BoolFlag{
			Name:    flagOriginalQuality,
			Usage:   "Download original bytes instead of previews",
			Sources: cli.EnvVars("GPHOTOS_ORIGINAL_QUALITY"),
		},
		&cli.IntFlag{
			Name:    flagRedirectPort,
			Usage:   "Port of the local OAuth redirect server",
			Sources: cli.EnvVars("GPHOTOS_REDIRECT_PORT"),
		},
		&cli.StringFlag{
			Name:    flagLogLevel,
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.EnvVars("GPHOTOS_LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:    flagLogJSON,
			Usage:   "Output logs in JSON format",
			Sources: cli.EnvVars("GPHOTOS_LOG_JSON"),
		},
		&cli.StringFlag{
			Name:    flagLogFile,
			Usage:   "Write logs to a file instead of stderr",
			Sources: cli.EnvVars("GPHOTOS_LOG_FILE"),
		},
	}
}

// loadSettings reads the settings file and applies explicitly set flags.
func loadSettings(c *cli.Command) (*config.Settings, error) {
	settings, err := config.Load(c.String(flagConfig))
	if err != nil {
		return nil, err
	}

	if c.IsSet(flagBackupDir) {
		settings.BackupDir = c.String(flagBackupDir)
	}
	if c.IsSet(flagStagingDir) {
		settings.StagingDir = c.String(flagStagingDir)
	}
	if c.IsSet(flagCredentialsDir) {
		settings.CredentialsDir = c.String(flagCredentialsDir)
	}
	if c.IsSet(flagWorkers) {
		settings.Workers = int(c.Int(flagWorkers))
	}
	if c.IsSet(flagMaxAttempts) {
		settings.MaxAttempts = int(c.Int(flagMaxAttempts))
	}
	if c.IsSet(flagPageSize) {
		settings.PageSize = int(c.Int(flagPageSize))
	}
	if c.IsSet(flagOriginalQuality) {
		settings.OriginalQuality = c.Bool(flagOriginalQuality)
	}
	if c.IsSet(flagRedirectPort) {
		settings.RedirectPort = int(c.Int(flagRedirectPort))
	}
	if c.IsSet(flagLogLevel) {
		settings.Log.Level = c.String(flagLogLevel)
	}
	if c.IsSet(flagLogJSON) {
		settings.Log.JSON = c.Bool(flagLogJSON)
	}
	if c.IsSet(flagLogFile) {
		settings.Log.File = c.String(flagLogFile)
	}

	if err := settings.Expand(); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid settings")
	}
	return settings, nil
}
