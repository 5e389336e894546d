package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "fetch a login record by guid",
		ArgsUsage: "<guid>",
		Flags:     []cli.Flag{dbPathFlag},
		Action:    runGet,
	}
}

func runGet(ctx context.Context, cmd *cli.Command) error {
	guid := cmd.Args().First()
	if guid == "" {
		return fmt.Errorf("get: a guid argument is required")
	}

	store, closeStore, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	login, ok, err := store.GetByID(guid)
	if err != nil {
		return fmt.Errorf("get login: %w", err)
	}
	if !ok {
		return fmt.Errorf("get: no login with guid %s", guid)
	}

	fmt.Printf("guid:      %s\n", login.Guid)
	fmt.Printf("hostname:  %s\n", login.Hostname)
	fmt.Printf("username:  %s\n", login.Username)
	fmt.Printf("times_used: %d\n", login.TimesUsed)
	return nil
}
