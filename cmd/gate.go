package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	lifecycleadapter "github.com/bnema/winspay-gate/internal/adapters/lifecycle"
	"github.com/bnema/winspay-gate/internal/adapters/navigation"
	gaterender "github.com/bnema/winspay-gate/internal/adapters/render/gate"
	"github.com/bnema/winspay-gate/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

type navigatorFunc func(domain.Route)

func (f navigatorFunc) Navigate(route domain.Route) {
	f(route)
}

type gateReport struct {
	State      string                `json:"state"`
	Route      string                `json:"route"`
	Path       string                `json:"path"`
	UserID     string                `json:"userId,omitempty"`
	Onboarding domain.OnboardingView `json:"onboarding"`
}

func newGateCmd(loader *appLoader) *cobra.Command {
	var (
		jsonOutput bool
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Decide where the app takes the user on launch",
		Long:  "gate restores the session, resolves payment onboarding, and prints the screen stack the user lands on. With --watch it stays running, re-checks when the process is resumed (SIGCONT, SIGUSR1) and follows sign-in changes.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.connected(cmd)
			if err != nil {
				return err
			}

			switch {
			case watch && jsonOutput:
				return runGateStream(cmd, app)
			case watch:
				return runGateWatch(cmd, app)
			default:
				return runGateOnce(cmd, app, jsonOutput)
			}
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON (one route per line with --watch)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and re-route on resume or sign-in changes")

	return cmd
}

func runGateOnce(cmd *cobra.Command, app *app, jsonOutput bool) error {
	recorder := &navigation.Recorder{}
	run, err := app.newGate(recorder, nil)
	if err != nil {
		return err
	}
	defer run.gate.Close()

	route := run.gate.Start(cmd.Context())

	if jsonOutput {
		snapshot := run.status.Current()
		report := gateReport{
			State:      string(run.gate.State()),
			Route:      string(route),
			Path:       route.Path(),
			UserID:     string(snapshot.UserID),
			Onboarding: snapshot.View(),
		}
		return writeJSON(cmd.OutOrStdout(), report)
	}

	rendered, err := app.render(run.view(app.clock))
	if err != nil {
		return fmt.Errorf("render gate: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func watchContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// runGateStream prints every navigation as a JSON line until interrupted.
func runGateStream(cmd *cobra.Command, app *app) error {
	ctx, stop := watchContext(cmd)
	defer stop()

	lifecycle := lifecycleadapter.NewSignalLifecycle(app.log)
	lifecycle.Start(ctx)
	defer lifecycle.Close()

	run, err := app.newGate(navigation.NewWriterNavigator(cmd.OutOrStdout(), navigation.FormatJSON), lifecycle)
	if err != nil {
		return err
	}
	defer run.gate.Close()

	run.gate.Start(ctx)
	<-ctx.Done()
	return nil
}

// runGateWatch keeps the gate screen live in the terminal. Gate callbacks
// only poke the refresh channel; the view is built off the callback path
// because navigation happens while the gate holds its lock.
func runGateWatch(cmd *cobra.Command, app *app) error {
	ctx, stop := watchContext(cmd)
	defer stop()

	lifecycle := lifecycleadapter.NewSignalLifecycle(app.log)
	lifecycle.Start(ctx)
	defer lifecycle.Close()

	refresh := make(chan struct{}, 1)
	poke := func() {
		select {
		case refresh <- struct{}{}:
		default:
		}
	}

	recorder := &navigation.Recorder{}
	run, err := app.newGate(navigation.Fanout{recorder, navigatorFunc(func(domain.Route) { poke() })}, lifecycle)
	if err != nil {
		return err
	}
	defer run.gate.Close()

	unsubscribeStatus := run.status.Subscribe(func(domain.OnboardingSnapshot) { poke() })
	defer unsubscribeStatus()
	unsubscribeSessions := run.sessions.Subscribe(func(*domain.Session) { poke() })
	defer unsubscribeSessions()

	model := gaterender.NewWatchModel(run.view(app.clock), func() { run.gate.Refetch(ctx) })
	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-refresh:
				gaterender.Send(p, run.view(app.clock))
			}
		}
	}()
	go func() {
		run.gate.Start(ctx)
		poke()
	}()

	_, err = p.Run()
	stop()
	app.log.WithField("routes", recorder.Routes()).Debug("gate watch finished")
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run gate watch: %w", err)
	}

	return nil
}
