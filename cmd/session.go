package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// sessionReport never carries tokens.
type sessionReport struct {
	SignedIn  bool       `json:"signedIn"`
	UserID    string     `json:"userId,omitempty"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func newSessionCmd(loader *appLoader) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show the stored session, refreshing it when it is about to expire",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.connected(cmd)
			if err != nil {
				return err
			}

			session, err := app.auth.GetSession(cmd.Context())
			if err != nil {
				return fmt.Errorf("get session: %w", err)
			}

			report := sessionReport{}
			if session != nil {
				report = sessionReport{
					SignedIn: true,
					UserID:   string(session.UserID),
					Email:    session.Email,
					Phone:    session.Phone,
				}
				if !session.ExpiresAt.IsZero() {
					expiresAt := session.ExpiresAt
					report.ExpiresAt = &expiresAt
				}
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), report)
			}

			if session == nil {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "No active session.")
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Signed in as %s\n", sessionIdentity(session))
			_, _ = fmt.Fprintf(out, "user: %s\n", session.UserID)
			if report.ExpiresAt != nil {
				_, _ = fmt.Fprintf(out, "expires: %s\n", report.ExpiresAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output session details as JSON")

	return cmd
}
