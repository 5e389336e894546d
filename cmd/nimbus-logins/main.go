package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/nimbus-logins/core/nimbusconfig"
	"github.com/nimbus-logins/core/nimbuslog"
)

func main() {
	cmd := &cli.Command{
		Name:  "nimbus-logins",
		Usage: "local login store administration tool",
		Commands: []*cli.Command{
			addCommand(),
			getCommand(),
			listCommand(),
			deleteCommand(),
			wipeCommand(),
			importCommand(),
		},
	}

	ctx := context.Background()

	// Config drives the log level before anything else runs, so a
	// misconfigured store path still gets logged at the level the user
	// asked for.
	cfg, cfgErr := nimbusconfig.Load(ctx)
	level := nimbuslog.ParseLevel("info")
	if cfgErr == nil {
		level = nimbuslog.ParseLevel(cfg.Log.Level)
	}

	logger := nimbuslog.New("nimbus-logins", level)
	slog.SetDefault(logger)
	ctx = nimbuslog.IntoContext(ctx, logger)

	if cfgErr != nil {
		logger.Error("failed to load configuration, continuing with defaults", "error", cfgErr)
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
