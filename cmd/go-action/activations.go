package main

import (
	"github.com/bassista/go_action/internal/app"
	"github.com/spf13/cobra"
)

func newActivationsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "activations",
		Aliases: []string{"activation"},
		Short:   "Inspect recorded activations",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recent activations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.NewFromConfig(opts.cfg, false)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			activations, err := a.History().List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printActivations(cmd.OutOrStdout(), activations)
		},
	}
	list.Flags().IntVarP(&limit, "limit", "l", 30, "number of activations to show (0 for all)")

	get := &cobra.Command{
		Use:   "get <activation-id>",
		Short: "Print one activation record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.NewFromConfig(opts.cfg, false)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			act, err := a.History().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), act)
		},
	}

	cmd.AddCommand(list, get)
	return cmd
}
