package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bassista/go_action/internal/config"
	"github.com/bassista/go_action/internal/logger"
	"github.com/spf13/cobra"
)

const invocationFailure = "Oh dear, there has been a problem invoking your action. Maybe these logs can help you resolve it?"

type options struct {
	logLevel string
	cfg      *config.Config
}

// invocationError marks failures of the action run itself, as opposed to
// usage or configuration errors.
type invocationError struct {
	err error
}

func (e *invocationError) Error() string { return e.err.Error() }
func (e *invocationError) Unwrap() error { return e.err }

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(&options{})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var invErr *invocationError
	if errors.As(err, &invErr) {
		fmt.Fprintln(stderr, invocationFailure)
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return 1
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "go-action",
		Short:         "Run serverless actions locally in their runtime container",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error); overrides misc.log_level")

	root.AddCommand(
		newInvokeCmd(opts),
		newReinvokeCmd(opts),
		newServeCmd(opts),
		newActivationsCmd(opts),
		newPruneCmd(opts),
	)
	return root
}

// setup loads the configuration and applies the log level.
func (o *options) setup() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	o.cfg = cfg

	level := cfg.Misc.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	if err := logger.SetLevel(level); err != nil {
		if o.logLevel != "" {
			return err
		}
		logger.WithComponent("main").Warnf("invalid log level '%s', using 'info': %v", level, err)
		_ = logger.SetLevel("info")
	}
	logger.WithComponent("main").Debugf("log level set to: %s", logger.Logger.GetLevel())
	return nil
}
