// Package cli implements the readycheck command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/readycheck/internal/config"
	"github.com/hamed0406/readycheck/internal/logging"
	"github.com/hamed0406/readycheck/internal/registry"
	"github.com/hamed0406/readycheck/internal/report"
)

const longDescription = `readycheck verifies that a set of services is ready: HTTP endpoints,
commands run inside containers, databases, caches, TCP ports and DNS names.
Each probe runs with its own timeout; the exit status is 0 when every probe
succeeded, 1 when any did not and 2 when the configuration is invalid.
`

// RootOptions are shared by every subcommand.
type RootOptions struct {
	Context    context.Context
	ConfigPath string
	Verbose    bool
}

// exitError carries a process exit status through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func configError(err error) error { return &exitError{code: report.ExitConfig, err: err} }

func NewRootCommand(ctx context.Context) *cobra.Command {
	options := RootOptions{Context: ctx}
	cmd := &cobra.Command{
		Use:           "readycheck",
		Short:         "Verify that dependent services are ready",
		Long:          longDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&options.ConfigPath, "config", "c", "readycheck.yaml", "Path to the YAML config file")
	cmd.PersistentFlags().BoolVarP(&options.Verbose, "verbose", "v", false, "Also write logs to stderr")

	cmd.AddCommand(newCmdCheck(&options))
	cmd.AddCommand(newCmdServe(&options))
	cmd.AddCommand(newCmdValidate(&options))
	return cmd
}

// Execute runs the command line and returns the process exit status.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand(ctx)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return report.ExitHealthy
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, "readycheck:", ee.err)
		}
		return ee.code
	}
	// flag and argument errors
	fmt.Fprintln(stderr, "readycheck:", err)
	return report.ExitConfig
}

// setup loads the config, builds the registry and the logger. Every failure
// here is a configuration error.
func (o *RootOptions) setup() (*config.Config, *registry.Registry, *zap.Logger, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, nil, nil, configError(err)
	}
	reg, err := registry.Build(cfg)
	if err != nil {
		return nil, nil, nil, configError(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel, o.Verbose)
	if err != nil {
		return nil, nil, nil, configError(err)
	}
	return cfg, reg, logger, nil
}
