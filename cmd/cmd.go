// submodule cmd contains command definitions
package main

import (
	"fmt"
	"strings"

	"github.com/desertthunder/dsync/internal/formatter"
	"github.com/urfave/cli/v3"
)

// commonFlags are accepted by every command that reads the config file.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}

// syncCommand mirrors SOURCE onto DESTINATION.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Mirror SOURCE onto DESTINATION",
		ArgsUsage: "SOURCE DESTINATION",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "source"},
			&cli.StringArg{Name: "destination"},
		},
		Flags: append(commonFlags(),
			&cli.BoolFlag{
				Name:  "no-perms",
				Usage: "Do not copy permission bits to the destination",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Number of concurrent workers (default from config)",
			},
			&cli.Int64Flag{
				Name:  "rate-limit",
				Usage: "Copy bandwidth in bytes per second, 0 for unlimited (default from config)",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show an interactive progress view",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record this run in the history database",
			},
		),
		Action: r.Sync,
	}
}

// historyCommand lists recorded runs.
func historyCommand(r *Runner) *cli.Command {
	formats := make([]string, len(formatter.Formats))
	for i, f := range formatter.Formats {
		formats[i] = string(f)
	}

	return &cli.Command{
		Name:  "history",
		Usage: "Show recent sync runs",
		Flags: append(commonFlags(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of runs to show",
				Value:   20,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   fmt.Sprintf("Output format (%s)", strings.Join(formats, ", ")),
				Value:   string(formatter.Text),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
		),
		Action: r.History,
	}
}

// setupCommand creates the config file and history database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize the history database",
		Flags:  commonFlags(),
		Action: r.Setup,
	}
}
