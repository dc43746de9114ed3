package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/account"
)

func (c *cli) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var password string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(password, cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, err := c.db()
			if err != nil {
				return err
			}
			u, err := account.NewService(store).Register(args[0], pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", u.Name, u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")

	check := &cobra.Command{
		Use:   "check <name>",
		Short: "Verify a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(password, cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, err := c.db()
			if err != nil {
				return err
			}
			u, err := account.NewService(store).Authenticate(args[0], pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s (id %d)\n", u.Name, u.ID)
			return nil
		},
	}
	check.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")

	cmd.AddCommand(add, check)
	return cmd
}
