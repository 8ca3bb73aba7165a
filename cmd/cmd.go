// Package cmd wires CLI configuration for the replicator.
package cmd

import (
	"fmt"
	"os"
	"runtime"

	"imapcopy/cmd/commands"

	"github.com/urfave/cli/v2"
)

var (
	// Version stores the version tag from build-time injection.
	Version = "dev"
	// Commit stores the git commit hash from build-time injection.
	Commit = "none"
	// Date stores the build date from build-time injection.
	Date = "unknown"
	// BuiltBy stores who built the binary.
	BuiltBy = "manual"
	// appName is the application name.
	appName = "imapcopy"
)

// Run configures and executes the imapcopy CLI application. It is a flat,
// single-command app: every flag from the spec's CLI surface is exposed
// directly on the root app, no subcommands.
func Run() error {
	cli.VersionPrinter = func(cCtx *cli.Context) {
		fmt.Println(cCtx.App.Version)
	}
	app := &cli.App{
		Name:                   appName,
		Suggest:                false,
		Usage:                  "one-shot IMAP mailbox replicator",
		UseShortOptionHandling: true,
		Version:                fmt.Sprintf("%s (commit: %s, built: %s by %s) // %s", Version, Commit, Date, BuiltBy, runtime.Version()),
		Action:                 commands.Replicate,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to configuration file (JSON or YAML)",
				EnvVars: []string{"IMAPCOPY_CONFIG"},
			},

			&cli.StringFlag{Name: "source-user", Aliases: []string{"u"}, EnvVars: []string{"IMAPCOPY_SOURCE_USER"}},
			&cli.StringFlag{Name: "source-pass", Aliases: []string{"p"}, EnvVars: []string{"IMAPCOPY_SOURCE_PASS"}},
			&cli.StringFlag{Name: "source-server", Aliases: []string{"s"}, EnvVars: []string{"IMAPCOPY_SOURCE_SERVER"}},
			&cli.StringFlag{Name: "destination-user", Aliases: []string{"U"}, EnvVars: []string{"IMAPCOPY_DESTINATION_USER"}},
			&cli.StringFlag{Name: "destination-pass", Aliases: []string{"P"}, EnvVars: []string{"IMAPCOPY_DESTINATION_PASS"}},
			&cli.StringFlag{Name: "destination-server", Aliases: []string{"S"}, EnvVars: []string{"IMAPCOPY_DESTINATION_SERVER"}},

			&cli.BoolFlag{Name: "dry-run", Aliases: []string{"d"}, Usage: "enumerate only; no CREATE, no APPEND"},
			&cli.BoolFlag{Name: "list", Aliases: []string{"l"}, Usage: "print source and destination folder listings, then exit"},
			&cli.BoolFlag{Name: "incremental", Aliases: []string{"i"}, Usage: "skip messages whose Message-ID already exists in the mapped destination folder"},
			&cli.BoolFlag{Name: "abort-on-error", Usage: "stop at the first APPEND/CREATE failure"},
			&cli.IntFlag{Name: "buffer-size", Aliases: []string{"b"}, Value: 50, Usage: "FETCH batch size"},
			&cli.StringFlag{Name: "denied-flags", Usage: "comma list; prefixed with \\ and added to the suppressed-flag set"},
			&cli.StringSliceFlag{Name: "redirect", Usage: "literal SRC:DST or SRC*:DST wildcard redirection (repeatable)"},
			&cli.BoolFlag{Name: "ignore-quota", Usage: "skip quota pre-check"},
			&cli.BoolFlag{Name: "ignore-folder-flags", Usage: "disable special-use linking"},
			&cli.IntFlag{Name: "max-line-length", Usage: "skip messages with any line longer than N bytes"},
			&cli.IntFlag{Name: "max-mail-size", Usage: "skip messages larger than N bytes"},
			&cli.BoolFlag{Name: "no-colors", Usage: "disable ANSI styling"},
			&cli.BoolFlag{Name: "skip-empty-folders", Usage: "drop empty folders from enumeration and creation"},
			&cli.BoolFlag{Name: "ssl-no-verify", Usage: "accept any TLS certificate"},
			&cli.StringFlag{Name: "source-encryption", Aliases: []string{"e"}, Value: "ssl", Usage: "ssl, tls, starttls or none"},
			&cli.StringFlag{Name: "destination-encryption", Aliases: []string{"E"}, Value: "ssl", Usage: "ssl, tls, starttls or none"},
			&cli.IntFlag{Name: "source-port", Usage: "default 993 implicit-TLS, 143 otherwise"},
			&cli.IntFlag{Name: "destination-port", Usage: "default 993 implicit-TLS, 143 otherwise"},
			&cli.StringFlag{Name: "source-root", Usage: "restrict enumeration to this folder tree"},
			&cli.StringFlag{Name: "destination-root", Usage: "prefix destination folder names with this root"},
			&cli.StringSliceFlag{Name: "source-mailbox", Usage: "whitelist a specific source folder name (repeatable)"},
			&cli.BoolFlag{Name: "destination-root-merge", Usage: "suppress destination-root prefix if already present"},
			&cli.BoolFlag{Name: "destination-no-subscribe", Usage: "do not SUBSCRIBE created folders"},

			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, EnvVars: []string{"IMAPCOPY_QUIET"}},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"V"}, EnvVars: []string{"IMAPCOPY_VERBOSE"}},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "don't prompt for confirmation before using an unencrypted connection"},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		return fmt.Errorf("app.Run: %w", err)
	}
	return nil
}
