package main

import (
	"context"
	"fmt"
	"io"

	"github.com/bassista/go_action/internal/app"
	"github.com/bassista/go_action/internal/logger"
	"github.com/bassista/go_action/internal/watcher"
	"github.com/spf13/cobra"
)

type invokeOptions struct {
	*options
	image string
	watch bool
}

func newInvokeCmd(opts *options) *cobra.Command {
	o := &invokeOptions{options: opts}
	cmd := &cobra.Command{
		Use:   "invoke <action> [key=value...]",
		Short: "Run a local action file or a remote action in a fresh container",
		Long: `Run an action once in a new runtime container and print its result.

<action> is a local source file (by extension, see runtime.local_extensions)
or the name of an action deployed on the platform ([/namespace/][package/]action).
Parameters are key=value pairs; values that parse as JSON are passed as JSON.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context(), cmd.OutOrStdout(), args[0], args[1:])
		},
	}
	cmd.Flags().StringVar(&o.image, "image", "", "runtime image; overrides runtime.image")
	cmd.Flags().BoolVarP(&o.watch, "watch", "w", false, "re-run a local action whenever its file changes")
	return cmd
}

func (o *invokeOptions) run(ctx context.Context, out io.Writer, id string, params []string) error {
	if o.image != "" {
		o.cfg.Runtime.Image = o.image
	}
	a, err := app.NewFromConfig(o.cfg, false)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	if !o.watch {
		return invokeOnce(ctx, a, out, id, params)
	}
	if !a.Builder.IsLocal(id) {
		return fmt.Errorf("--watch needs a local action file, got %q", id)
	}

	log := logger.WithComponent("watch")
	rerun := func() {
		if err := invokeOnce(ctx, a, out, id, params); err != nil {
			log.Errorf("%s\n%v", invocationFailure, err)
		}
	}
	done, err := watcher.WatchFile(ctx, id, watcher.DefaultDebounce, func() {
		log.Infof("%s changed, invoking again", id)
		rerun()
	})
	if err != nil {
		return err
	}

	rerun()
	log.Infof("watching %s, press Ctrl+C to stop", id)
	<-done
	return nil
}

func invokeOnce(ctx context.Context, a *app.App, out io.Writer, id string, params []string) error {
	act, err := a.Invoker.Invoke(ctx, id, params)
	if err != nil {
		return &invocationError{err: err}
	}
	logger.WithComponent("invoke").Debugf("activation %s finished in %dms", act.ActivationID, act.DurationMs)
	return printJSON(out, act.Result)
}
