package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/giantswarm/meta-ads-mcp/internal/auth"
	"github.com/giantswarm/meta-ads-mcp/internal/config"
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long: `Show whether a usable Meta access token is cached, how it was obtained
and when it expires, together with the relevant configuration.`,
	Args: cobra.NoArgs,
	RunE: runAuthStatus,
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	if err := initCLILogging(cmd); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a := newApp(cfg, false)
	defer a.Close()

	tok := a.manager.GetAccessToken()
	now := time.Now()

	authPrint(cmd, "Meta Ads authentication\n")
	if tok == nil {
		authPrint(cmd, "  Status:    %s\n", text.FgYellow.Sprint("Not authenticated"))
		authPrint(cmd, "  Run 'meta-ads-mcp auth login' to authenticate.\n")
	} else {
		authPrint(cmd, "  Status:    %s\n", text.FgGreen.Sprint("Authenticated"))
		authPrint(cmd, "  Token:     %s\n", tok.Preview())
		authPrint(cmd, "  Source:    %s\n", formatMethod(tok.Method))
		authPrint(cmd, "  Expires:   %s\n", formatExpiry(tok.ExpiresAt, now))
	}

	authPrint(cmd, "\nConfiguration\n")
	authPrint(cmd, "  App ID:          %s\n", valueOrMissing(cfg.AppID))
	authPrint(cmd, "  App secret:      %s\n", formatConfigured(cfg.AppSecret != ""))
	authPrint(cmd, "  Login link:      %s\n", formatEnabled(cfg.LoginLinkEnabled()))
	authPrint(cmd, "  Callback server: %s\n", formatEnabled(cfg.CallbackEnabled()))
	authPrint(cmd, "  Token store:     %s\n", formatStore(cfg.TokenStore))
	return nil
}

func formatMethod(m auth.Method) string {
	switch m {
	case auth.MethodManual:
		return "environment (META_ACCESS_TOKEN)"
	case auth.MethodCached:
		return "token store"
	case auth.MethodOAuth:
		return "OAuth login"
	default:
		return string(m)
	}
}

// formatExpiry renders an expiry relative to now.
func formatExpiry(expiresAt, now time.Time) string {
	if expiresAt.IsZero() {
		return text.FgHiBlack.Sprint("unknown (valid until cleared)")
	}
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return text.FgYellow.Sprintf("expired %s ago", formatDuration(-remaining))
	}
	return fmt.Sprintf("in %s (%s)", formatDuration(remaining), expiresAt.Local().Format(time.RFC1123))
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func formatEnabled(enabled bool) string {
	if enabled {
		return text.FgGreen.Sprint("enabled")
	}
	return text.FgYellow.Sprint("disabled")
}

func formatConfigured(configured bool) string {
	if configured {
		return text.FgGreen.Sprint("configured")
	}
	return text.FgHiBlack.Sprint("not set")
}

func valueOrMissing(v string) string {
	if v == "" {
		return text.FgRed.Sprint("missing")
	}
	return v
}

func formatStore(cfg config.TokenStoreConfig) string {
	if cfg.Kind == config.StoreKindMemory {
		return string(cfg.Kind)
	}
	return fmt.Sprintf("%s (%s)", cfg.Kind, cfg.Path)
}
