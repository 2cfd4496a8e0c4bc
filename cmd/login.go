package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	authadapter "github.com/bnema/winspay-gate/internal/adapters/auth"
	"github.com/bnema/winspay-gate/internal/adapters/navigation"
	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(loader *appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the payments app",
	}

	cmd.AddCommand(
		newLoginPasswordCmd(loader),
		newLoginSignUpCmd(loader),
		newLoginOTPCmd(loader),
		newLoginBrowserCmd(loader),
	)

	return cmd
}

type passwordFlags struct {
	email         string
	passwordStdin bool
}

func (f *passwordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "Account email address")
	cmd.Flags().BoolVar(&f.passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
}

func (f *passwordFlags) credentials(cmd *cobra.Command) (domain.Credentials, error) {
	password, err := readPassword(cmd, f.passwordStdin)
	if err != nil {
		return domain.Credentials{}, err
	}

	creds := domain.Credentials{Email: f.email, Password: password}
	if err := creds.Validate(); err != nil {
		return domain.Credentials{}, err
	}

	return creds, nil
}

func newLoginPasswordCmd(loader *appLoader) *cobra.Command {
	var flags passwordFlags

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.connected(cmd)
			if err != nil {
				return err
			}
			creds, err := flags.credentials(cmd)
			if err != nil {
				return err
			}

			session, err := app.auth.SignInWithPassword(cmd.Context(), creds)
			if err != nil {
				return err
			}

			return reportSignedIn(cmd, app, session)
		},
	}
	flags.register(cmd)

	return cmd
}

func newLoginSignUpCmd(loader *appLoader) *cobra.Command {
	var flags passwordFlags

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.connected(cmd)
			if err != nil {
				return err
			}
			creds, err := flags.credentials(cmd)
			if err != nil {
				return err
			}

			session, err := app.auth.SignUp(cmd.Context(), creds)
			if errors.Is(err, domain.ErrConfirmationSent) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Check %s to confirm your account, then run wg login password.\n", strings.TrimSpace(creds.Email))
				return nil
			}
			if err != nil {
				return err
			}

			return reportSignedIn(cmd, app, session)
		},
	}
	flags.register(cmd)

	return cmd
}

func newLoginOTPCmd(loader *appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otp",
		Short: "Sign in with a one-time code sent by SMS",
	}

	var sendPhone string
	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Text a one-time code to a phone number",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.connected(cmd)
			if err != nil {
				return err
			}
			if err := app.auth.SendOTP(cmd.Context(), sendPhone); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Code sent to %s\n", sendPhone)
			return nil
		},
	}
	sendCmd.Flags().StringVar(&sendPhone, "phone", "", "Phone number in international format (+15551234567)")
	_ = sendCmd.MarkFlagRequired("phone")

	var verifyPhone, code string
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Sign in with the code you received",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.connected(cmd)
			if err != nil {
				return err
			}

			session, err := app.auth.VerifyOTP(cmd.Context(), verifyPhone, code)
			if err != nil {
				return err
			}

			return reportSignedIn(cmd, app, session)
		},
	}
	verifyCmd.Flags().StringVar(&verifyPhone, "phone", "", "Phone number the code was sent to")
	verifyCmd.Flags().StringVar(&code, "code", "", "One-time code")
	_ = verifyCmd.MarkFlagRequired("phone")
	_ = verifyCmd.MarkFlagRequired("code")

	cmd.AddCommand(sendCmd, verifyCmd)

	return cmd
}

func newLoginBrowserCmd(loader *appLoader) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "browser",
		Short: "Sign in with an OAuth provider in the browser",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.connected(cmd)
			if err != nil {
				return err
			}
			if provider == "" {
				provider = app.cfg.Auth.OAuthProvider
			}

			return runBrowserLogin(cmd, app, provider)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "OAuth provider (defaults to auth.oauth_provider)")

	return cmd
}

func runBrowserLogin(cmd *cobra.Command, app *app, provider string) error {
	pkce, err := authadapter.NewPKCEPair()
	if err != nil {
		return fmt.Errorf("generate pkce: %w", err)
	}
	state, err := authadapter.NewState()
	if err != nil {
		return fmt.Errorf("generate oauth state: %w", err)
	}

	server, err := authadapter.StartCallbackServer(app.cfg.Auth.ListenAddr, state)
	if err != nil {
		return fmt.Errorf("start callback server: %w", err)
	}

	authURL, err := app.auth.AuthorizeURL(provider, server.RedirectURL(), pkce)
	if err != nil {
		_ = server.Close()
		return fmt.Errorf("build authorize url: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to sign in with %s:\n%s\n", provider, authURL)

	code, err := server.WaitForCode(cmd.Context(), app.cfg.Auth.CallbackTimeout)
	if err != nil {
		return fmt.Errorf("wait for oauth callback: %w", err)
	}

	session, err := app.auth.ExchangeCodeForSession(cmd.Context(), code, pkce.Verifier)
	if err != nil {
		return err
	}

	return reportSignedIn(cmd, app, session)
}

// reportSignedIn prints who is signed in, then runs the gate once so the
// user sees where the app would take them.
func reportSignedIn(cmd *cobra.Command, app *app, session domain.Session) error {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", sessionIdentity(&session))

	run, err := app.newGate(navigation.NewWriterNavigator(cmd.OutOrStdout(), navigation.FormatText), nil)
	if err != nil {
		return err
	}
	defer run.gate.Close()

	run.gate.Start(cmd.Context())
	return nil
}

func sessionIdentity(session *domain.Session) string {
	switch {
	case session.Email != "":
		return session.Email
	case session.Phone != "":
		return session.Phone
	default:
		return string(session.UserID)
	}
}

func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	if fromStdin {
		return readSecretLine(cmd.InOrStdin())
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password required: pass --password-stdin when stdin is not a terminal")
	}

	_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	raw, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	return string(raw), nil
}

func readSecretLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
