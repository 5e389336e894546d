package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func wipeCommand() *cli.Command {
	return &cli.Command{
		Name:  "wipe",
		Usage: "tombstone every visible record",
		Flags: []cli.Flag{dbPathFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store, closeStore, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Wipe(); err != nil {
				return fmt.Errorf("wipe: %w", err)
			}
			return nil
		},
	}
}
