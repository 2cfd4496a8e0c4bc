package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/bnema/winspay-gate/internal/application"
	"github.com/spf13/cobra"
)

func newOnboardCmd(loader *appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Set up the payment account used for payouts",
	}

	cmd.AddCommand(
		newOnboardStartCmd(loader),
		newOnboardCheckCmd(loader),
		newOnboardWaitCmd(loader),
	)

	return cmd
}

func newOnboardStartCmd(loader *appLoader) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Create a hosted onboarding link with the payment provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.connected(cmd)
			if err != nil {
				return err
			}

			link, err := app.onboarding.StartOnboarding(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"url": link})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Open this link to set up payments:\n%s\n", link)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the link as JSON")

	return cmd
}

type checkReport struct {
	Route   string `json:"route"`
	Path    string `json:"path"`
	Settled bool   `json:"settled"`
	Message string `json:"message,omitempty"`
}

func newCheckReport(check application.OnboardingCheck) checkReport {
	return checkReport{
		Route:   string(check.Route),
		Path:    check.Route.Path(),
		Settled: check.Settled(),
		Message: check.Message,
	}
}

func printCheck(out io.Writer, check application.OnboardingCheck, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(out, newCheckReport(check))
	}

	if check.Message != "" {
		_, _ = fmt.Fprintln(out, check.Message)
	}
	_, err := fmt.Fprintf(out, "next: %s -> %s\n", check.Route.Label(), check.Route.Path())
	return err
}

func newOnboardCheckCmd(loader *appLoader) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Ask the backend whether payment onboarding is finished",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.connected(cmd)
			if err != nil {
				return err
			}

			check, err := app.onboarding.CheckOnboarding(cmd.Context())
			if err != nil {
				return err
			}

			return printCheck(cmd.OutOrStdout(), check, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON")

	return cmd
}

func newOnboardWaitCmd(loader *appLoader) *cobra.Command {
	var (
		jsonOutput bool
		interval   time.Duration
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Poll until payment onboarding is finished or needs restarting",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.connected(cmd)
			if err != nil {
				return err
			}
			if interval <= 0 {
				interval = app.cfg.Onboarding.PollInterval
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			var check application.OnboardingCheck
			wait := func(ctx context.Context) error {
				var waitErr error
				check, waitErr = app.onboarding.WaitForOnboarding(ctx, interval)
				return waitErr
			}

			if jsonOutput {
				err = wait(ctx)
			} else {
				err = runWithSpinner(ctx, cmd.ErrOrStderr(), "Waiting for the payment provider...", wait)
			}
			if err != nil {
				return err
			}

			return printCheck(cmd.OutOrStdout(), check, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON and skip the spinner")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Time between checks (defaults to onboarding.poll_interval)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits until interrupted)")

	return cmd
}

func writeJSON(out io.Writer, value any) error {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	_, err = fmt.Fprintln(out, string(encoded))
	return err
}
