package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the settings file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			fmt.Fprintln(cmd.OutOrStdout(), rt.cfg.SettingsPath)
			return nil
		},
	}
}
