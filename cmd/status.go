package cmd

import (
	"fmt"

	"github.com/bnema/winspay-gate/internal/application"
	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/spf13/cobra"
)

func newStatusCmd(loader *appLoader) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Resolve payment onboarding status for the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.connected(cmd)
			if err != nil {
				return err
			}

			session, err := app.auth.GetSession(cmd.Context())
			if err != nil {
				app.log.WithError(err).Warn("session restore failed, treating as signed out")
				session = nil
			}

			var userID *domain.UserID
			if session != nil {
				id := session.UserID
				userID = &id
			}

			snapshot := app.newResolver(application.NewStatusStore()).Resolve(cmd.Context(), userID)

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), snapshot.View())
			}

			out := cmd.OutOrStdout()
			if session == nil {
				_, _ = fmt.Fprintln(out, "No active session.")
			} else {
				_, _ = fmt.Fprintf(out, "user: %s\n", session.UserID)
			}
			_, _ = fmt.Fprintf(out, "status: %s\n", snapshot.Status)
			if snapshot.Err != "" {
				_, _ = fmt.Fprintf(out, "error: %s\n", snapshot.Err)
			}
			route := domain.RouteForStatus(snapshot.Status)
			_, _ = fmt.Fprintf(out, "next: %s -> %s\n", route.Label(), route.Path())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the onboarding flags as JSON")

	return cmd
}
