package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/nimbus-logins/core/logins"
)

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list visible login records, optionally filtered by base domain",
		Flags: []cli.Flag{
			dbPathFlag,
			&cli.StringFlag{Name: "base-domain", Usage: "restrict the listing to this base domain"},
		},
		Action: runList,
	}
}

func runList(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	var records []logins.Login
	if domain := cmd.String("base-domain"); domain != "" {
		records, err = store.GetByBaseDomain(domain)
	} else {
		records, err = store.GetAll()
	}
	if err != nil {
		return fmt.Errorf("list logins: %w", err)
	}

	for _, l := range records {
		fmt.Printf("%s\t%s\t%s\n", l.Guid, l.Hostname, l.Username)
	}
	return nil
}
