package cmd

import (
	"github.com/ramonvermeulen/whosthere/internal/core/version"
	"github.com/spf13/cobra"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			version.Fprint(cmd.OutOrStdout())
			return nil
		},
	}
}
