package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/giantswarm/meta-ads-mcp/internal/auth"
	"github.com/giantswarm/meta-ads-mcp/internal/login"
)

var (
	loginToken string
	loginOpen  bool
	loginWait  bool
)

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with Meta Ads",
	Long: `Authenticate with Meta Ads.

Without flags this prints a login link, starts the local callback listener
and waits until the browser redirect has been captured and exchanged for a
token. The token is then cached in the token store for the MCP server.

Use --token to store a token obtained elsewhere instead.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

func init() {
	authLoginCmd.Flags().StringVar(&loginToken, "token", "", "Store this access token instead of running the OAuth flow")
	authLoginCmd.Flags().BoolVar(&loginOpen, "open", false, "Open the login link in the default browser")
	authLoginCmd.Flags().BoolVar(&loginWait, "wait", true, "Wait for the browser redirect to complete the login")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	if err := initCLILogging(cmd); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a := newApp(cfg, false)
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if loginToken != "" {
		a.manager.SetAccessToken(&auth.Token{
			AccessToken: loginToken,
			IssuedAt:    time.Now(),
			Method:      auth.MethodCached,
		})
		authPrint(cmd, "%s Stored access token %s\n", text.FgGreen.Sprint("✓"), auth.Preview(loginToken))
		return nil
	}

	result := a.orchestrator.Login(ctx, "")
	printLoginResult(cmd.OutOrStdout(), result)

	switch result.Status {
	case login.StatusError:
		if result.ErrorKind == auth.KindConfigurationMissing.String() {
			return fmt.Errorf("%s: %w", result.Error, auth.ErrConfigurationMissing)
		}
		return fmt.Errorf("%s", result.Error)
	case login.StatusDisabled, login.StatusSuccess:
		return nil
	}

	if loginOpen {
		if err := auth.OpenBrowser(result.LoginURL); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", text.FgYellow.Sprint("Could not open browser:"), err)
		}
	}

	session := a.manager.CurrentSession()
	if !loginWait || session == nil || !session.Listening {
		return nil
	}

	return waitForLogin(ctx, cmd, a.manager, session)
}

// waitForLogin blocks until the session finishes, showing a spinner.
func waitForLogin(ctx context.Context, cmd *cobra.Command, manager *auth.Manager, session *auth.AuthSession) error {
	var s *spinner.Spinner
	if !authQuiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		s.Suffix = fmt.Sprintf(" Waiting for authorization (expires %s)...", session.ExpiresAt().Format("15:04:05"))
		s.Start()
	}

	state, err := session.Wait(ctx)

	if s != nil {
		s.Stop()
	}

	if ctx.Err() != nil {
		return fmt.Errorf("login cancelled")
	}

	switch state {
	case auth.SessionSucceeded:
		tok := manager.GetAccessToken()
		authPrint(cmd, "%s Authenticated. Token %s", text.FgGreen.Sprint("✓"), tok.Preview())
		if tok != nil && !tok.ExpiresAt.IsZero() {
			authPrint(cmd, " valid until %s", tok.ExpiresAt.Local().Format(time.RFC1123))
		}
		authPrint(cmd, "\n")
		return nil
	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", text.FgRed.Sprint("Login "+state.String()+":"), err)
		for _, hint := range auth.KindOf(err).Remediation() {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", hint)
		}
		return err
	}
}

// printLoginResult renders a login result for a terminal.
func printLoginResult(w io.Writer, r login.Result) {
	switch r.Status {
	case login.StatusSuccess:
		fmt.Fprintf(w, "%s %s\n", text.FgGreen.Sprint("✓"), r.Message)
	case login.StatusDisabled:
		fmt.Fprintf(w, "%s %s\n", text.FgHiBlack.Sprint("-"), r.Message)
	case login.StatusError:
		fmt.Fprintf(w, "%s %s\n", text.FgRed.Sprint("✗"), r.Message)
	default:
		fmt.Fprintln(w, r.Message)
	}

	if r.TokenPreview != "" {
		fmt.Fprintf(w, "  Token:   %s (%s)\n", r.TokenPreview, r.AuthenticationMethod)
	}
	if r.LoginURL != "" {
		fmt.Fprintf(w, "\n  %s\n\n", text.Underline.Sprint(r.LoginURL))
	}
	for _, line := range []string{r.Instructions, r.WhatHappensNext, r.TokenDuration} {
		if line != "" {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	if r.Error != "" {
		fmt.Fprintf(w, "  %s %s\n", text.FgRed.Sprint("Error:"), r.Error)
	}
	for _, hint := range r.Troubleshooting {
		fmt.Fprintf(w, "  - %s\n", hint)
	}
}
