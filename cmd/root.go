package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command; it does nothing without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "mockserv",
	Short: "Local HTTP server for testing clients against scripted mocks",
	Long: `mockserv answers HTTP requests for local development:

  /mock/...       runs the script whose path matches the request
  /echo/...       replies with a dump of the request
  /command/<app>  runs a tool from the tools directory`,
	SilenceUsage: true,
}

// SetVersion sets the version reported by "mockserv version" and --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the version set by SetVersion.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mockserv version %s\n" .Version}}`)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newInitCmd())
}
