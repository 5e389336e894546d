package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "delete a login record by guid",
		ArgsUsage: "<guid>",
		Flags:     []cli.Flag{dbPathFlag},
		Action:    runDelete,
	}
}

func runDelete(ctx context.Context, cmd *cli.Command) error {
	guid := cmd.Args().First()
	if guid == "" {
		return fmt.Errorf("delete: a guid argument is required")
	}

	store, closeStore, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	deleted, err := store.Delete(guid)
	if err != nil {
		return fmt.Errorf("delete login: %w", err)
	}
	if !deleted {
		return fmt.Errorf("delete: no login with guid %s", guid)
	}
	return nil
}
