package cmd

import (
	"fmt"
	"strings"

	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/spf13/cobra"
)

type profileReport struct {
	ID                  string                  `json:"id"`
	PaymentAccountID    *string                 `json:"stripeAccountId"`
	OnboardingCompleted bool                    `json:"onboardingCompleted"`
	PayoutsEnabled      bool                    `json:"payoutsEnabled"`
	Status              domain.OnboardingStatus `json:"status"`
}

func newProfileReport(profile domain.Profile) profileReport {
	return profileReport{
		ID:                  string(profile.ID),
		PaymentAccountID:    profile.PaymentAccountID,
		OnboardingCompleted: profile.OnboardingCompleted,
		PayoutsEnabled:      profile.PayoutsEnabled,
		Status:              domain.ClassifyProfile(profile),
	}
}

func newProfilesCmd(loader *appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage the local profiles file used by the file profile backend",
	}

	cmd.AddCommand(newProfilesListCmd(loader), newProfilesSetCmd(loader))

	return cmd
}

func newProfilesListCmd(loader *appLoader) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List local profiles and their onboarding status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.load(cmd)
			if err != nil {
				return err
			}

			profiles, err := app.fixtures.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list profiles: %w", err)
			}

			reports := make([]profileReport, 0, len(profiles))
			for _, profile := range profiles {
				reports = append(reports, newProfileReport(profile))
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), reports)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "profiles: %d (%s)\n", len(reports), app.fixtures.Path())
			for _, report := range reports {
				account := "-"
				if report.PaymentAccountID != nil {
					account = *report.PaymentAccountID
				}
				_, _ = fmt.Fprintf(out, "%s  account=%s  completed=%t  payouts=%t  status=%s\n",
					report.ID, account, report.OnboardingCompleted, report.PayoutsEnabled, report.Status)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output profiles as JSON")

	return cmd
}

func newProfilesSetCmd(loader *appLoader) *cobra.Command {
	var (
		id        string
		account   string
		completed bool
		payouts   bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or replace a local profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.load(cmd)
			if err != nil {
				return err
			}

			profile := domain.Profile{
				ID:                  domain.UserID(strings.TrimSpace(id)),
				OnboardingCompleted: completed,
				PayoutsEnabled:      payouts,
			}
			if account = strings.TrimSpace(account); account != "" {
				profile.PaymentAccountID = &account
			}

			if err := app.fixtures.Save(cmd.Context(), profile); err != nil {
				return fmt.Errorf("save profile: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %s (%s)\n", profile.ID, domain.ClassifyProfile(profile))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "User ID the profile belongs to")
	cmd.Flags().StringVar(&account, "payment-account", "", "Payment provider account ID (empty for none)")
	cmd.Flags().BoolVar(&completed, "completed", false, "Provider onboarding completed")
	cmd.Flags().BoolVar(&payouts, "payouts", false, "Payouts enabled")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
