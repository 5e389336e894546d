package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/nimbus-logins/core/logins"
)

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "bulk-import login records from a JSON array file into an empty store",
		ArgsUsage: "<file.json>",
		Flags:     []cli.Flag{dbPathFlag},
		Action:    runImport,
	}
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("import: a json file argument is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("import: read %s: %w", path, err)
	}

	var records []logins.Login
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("import: parse %s: %w", path, err)
	}

	store, closeStore, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	metrics, err := store.ImportMultiple(records)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	out, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("import: encode metrics: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
