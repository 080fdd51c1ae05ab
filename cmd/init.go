package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"simonwaldherr.de/go/mockserv/internal/config"
)

func newInitCmd() *cobra.Command {
	var configFile string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configFile); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", configFile)
			}
			if err := config.NewConfig().SaveConfig(configFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", defaultConfigFile, "Path of the config file to write")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
