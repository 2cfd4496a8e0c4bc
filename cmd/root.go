package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	loader := &appLoader{}

	rootCmd := &cobra.Command{
		Use:           "wg",
		Short:         "winspay gate (wg): sign in and route by payment onboarding status",
		Long:          "wg restores a Supabase session, resolves the signed-in user's payment onboarding status from their profile, and tells you which screen stack they belong on: sign in, payment setup, or the main app.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&loader.logLevel, "log-level", "", "Log level override (debug|info|warn|error)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(loader),
		newLogoutCmd(loader),
		newSessionCmd(loader),
		newStatusCmd(loader),
		newGateCmd(loader),
		newOnboardCmd(loader),
		newProfilesCmd(loader),
	)

	return rootCmd
}
