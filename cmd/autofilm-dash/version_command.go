package main

import (
	"github.com/spf13/cobra"

	"github.com/rickgao/autofilm-dash/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the dashboard version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			printMessage(cmd, "autofilm-dash "+version.String())
			return nil
		},
	}
}
