package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd(loader *appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.connected(cmd)
			if err != nil {
				return err
			}
			if err := app.auth.SignOut(cmd.Context()); err != nil {
				return fmt.Errorf("sign out: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}
