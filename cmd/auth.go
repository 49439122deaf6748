package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/meta-ads-mcp/pkg/logging"
)

var authQuiet bool

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Meta Ads authentication",
	Long: `Manage the Meta access token used by meta-ads-mcp.

Examples:
  meta-ads-mcp auth login              # Print a login link and wait for the redirect
  meta-ads-mcp auth login --open       # Also open the link in the browser
  meta-ads-mcp auth login --token T    # Store a token obtained elsewhere
  meta-ads-mcp auth status             # Show the cached token
  meta-ads-mcp auth logout             # Clear the cached token`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored access token",
	Long: `Clear the cached access token from memory and from the persistent token
store. The next login will start a new OAuth flow.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogout,
}

// authPrint prints output only if the --quiet flag is not set.
func authPrint(cmd *cobra.Command, format string, args ...interface{}) {
	if !authQuiet {
		fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	}
}

// initCLILogging routes logs to stderr. Interactive commands only show
// warnings unless --log-level asks for more.
func initCLILogging(cmd *cobra.Command) error {
	level := "warn"
	if logLevel != "" {
		level = logLevel
	}
	parsed, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	logging.InitForCLI(parsed, cmd.ErrOrStderr())
	return nil
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)

	authCmd.PersistentFlags().BoolVarP(&authQuiet, "quiet", "q", false, "Suppress non-essential output")
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initCLILogging(cmd); err != nil {
		return err
	}

	a := newApp(cfg, false)
	defer a.Close()

	a.manager.Logout()
	authPrint(cmd, "Logged out. The stored access token has been cleared.\n")
	if cfg.AccessToken != "" {
		authPrint(cmd, "Note: META_ACCESS_TOKEN is still set and will be used on the next start.\n")
	}
	return nil
}
