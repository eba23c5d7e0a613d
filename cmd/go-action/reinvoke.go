package main

import (
	"github.com/bassista/go_action/internal/app"
	"github.com/spf13/cobra"
)

func newReinvokeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reinvoke <container-id> [key=value...]",
		Short: "Run the action already initialized in a running container again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.NewFromConfig(opts.cfg, false)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			act, err := a.Invoker.Reinvoke(cmd.Context(), args[0], args[1:])
			if err != nil {
				return &invocationError{err: err}
			}
			return printJSON(cmd.OutOrStdout(), act.Result)
		},
	}
}
