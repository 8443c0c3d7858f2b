package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"salespulse/pkg/contracts"
)

func newVersionCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := contracts.GetVersionString()
			if full {
				out = contracts.GetFullVersionString()
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "include build details")
	return cmd
}
