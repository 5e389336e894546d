package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/nimbus-logins/core/logins"
)

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "add a new login record",
		Flags: []cli.Flag{
			dbPathFlag,
			&cli.StringFlag{Name: "hostname", Required: true},
			&cli.StringFlag{Name: "http-realm"},
			&cli.StringFlag{Name: "form-submit-url"},
			&cli.StringFlag{Name: "username"},
			&cli.StringFlag{Name: "username-field"},
			&cli.StringFlag{Name: "password", Required: true},
			&cli.StringFlag{Name: "password-field"},
		},
		Action: runAdd,
	}
}

func runAdd(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	added, err := store.Add(logins.Login{
		Hostname:      cmd.String("hostname"),
		HTTPRealm:     cmd.String("http-realm"),
		FormSubmitURL: cmd.String("form-submit-url"),
		Username:      cmd.String("username"),
		UsernameField: cmd.String("username-field"),
		Password:      cmd.String("password"),
		PasswordField: cmd.String("password-field"),
	})
	if err != nil {
		return fmt.Errorf("add login: %w", err)
	}

	fmt.Println(added.Guid)
	return nil
}
