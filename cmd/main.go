package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/dsync/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(runner).Run(ctx, os.Args); err != nil {
		code := exitCode(err)
		runner.logger.Error("dsync failed", "err", err, "code", code)
		stop()
		os.Exit(code)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "dsync",
		Usage:    "Mirror a directory tree onto another with concurrent workers",
		Version:  "0.1.0",
		Commands: r.register(),
	}
}
