// Package backup runs the end-to-end backup of a Google Photos library.
//
// A run has four steps:
//
//  1. Authenticate
//  2. Enumerate the library
//  3. Categorize by capture month and report statistics
//  4. Download into the staging directory and organize into the backup tree
//
// Runner also exposes the single steps used by the CLI subcommands
// (Authenticate, Catalog, Albums, Revoke, Clean). Progress is reported
// through Hooks, mirroring how the interactive and plain front-ends consume
// it:
//
//	runner, err := backup.NewRunner(settings, logger)
//	report, err := runner.Run(ctx, backup.Hooks{
//	    OnEvent: func(e backup.Event) { fmt.Println(e.Message) },
//	})
package backup
