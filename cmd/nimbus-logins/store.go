package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/nimbus-logins/core/logins"
	"github.com/nimbus-logins/core/nimbusconfig"
	"github.com/nimbus-logins/core/nimbuslog"
	"github.com/nimbus-logins/core/schema"
)

var dbPathFlag = &cli.StringFlag{
	Name:  "db-path",
	Usage: "path to the login store database (overrides NIMBUS_DB_PATH)",
}

// openStore loads configuration, opens the schema at the configured
// (or flag-overridden) path, and wraps it in a logins.Store bound to
// the context's logger.
func openStore(ctx context.Context, cmd *cli.Command) (*logins.Store, func() error, error) {
	cfg, err := nimbusconfig.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	path := cfg.Store.DbPath
	if p := cmd.String("db-path"); p != "" {
		path = p
	}

	db, err := schema.Open(path, schema.WithLogger(nimbuslog.FromContext(ctx)))
	if err != nil {
		return nil, nil, fmt.Errorf("open store at %s: %w", path, err)
	}

	store := logins.New(db,
		logins.WithLogger(nimbuslog.FromContext(ctx)),
		logins.WithInterruptTimeout(cfg.Store.InterruptTimeout))
	return store, db.Close, nil
}
