package main

import (
	"fmt"

	"github.com/bassista/go_action/internal/app"
	"github.com/spf13/cobra"
)

func newPruneCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove stopped or expired containers left behind by earlier runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.NewFromConfig(opts.cfg, false)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			removed, err := a.Prune(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d container(s)\n", removed)
			return nil
		},
	}
}
