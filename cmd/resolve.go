package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"simonwaldherr.de/go/mockserv/internal/config"
	"simonwaldherr.de/go/mockserv/internal/mock"
	"simonwaldherr.de/go/mockserv/internal/request"
)

func newResolveCmd() *cobra.Command {
	var configFile, mockRoot string
	cmd := &cobra.Command{
		Use:   "resolve <path>",
		Short: "Show which mock script a request path would run",
		Long: `Resolves a request path against the mock tree without running anything.
The path may be given with or without the /mock prefix.

Example:
  mockserv resolve /mock/users/42/profile`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("mock-root") {
				settings.MockRoot = mockRoot
			}

			urlPath := args[0]
			if !strings.HasPrefix(urlPath, "/") {
				urlPath = "/" + urlPath
			}
			if urlPath != mock.DefaultPrefix && !strings.HasPrefix(urlPath, mock.DefaultPrefix+"/") {
				urlPath = mock.DefaultPrefix + urlPath
			}

			res, err := mock.Resolve(cmd.Context(), settings.MockRoot, mock.Segments(urlPath, mock.DefaultPrefix))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "script: %s\n", res.ScriptPath)
			for _, k := range request.SortedKeys(res.PathParams) {
				fmt.Fprintf(out, "param:  %s=%s\n", k, res.PathParams[k])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", defaultConfigFile, "Path to the YAML config file")
	cmd.Flags().StringVar(&mockRoot, "mock-root", "", "Directory holding mock scripts (overrides config)")
	return cmd
}
