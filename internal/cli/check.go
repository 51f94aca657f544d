package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hamed0406/readycheck/internal/probe"
	"github.com/hamed0406/readycheck/internal/report"
	"github.com/hamed0406/readycheck/internal/runner"
)

type checkOptions struct {
	*RootOptions
	Concurrency int
	JSON        bool
}

func newCmdCheck(root *RootOptions) *cobra.Command {
	options := checkOptions{RootOptions: root}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run every probe once and report",
		Args:  cobra.NoArgs,
		RunE:  options.run,
	}
	cmd.Flags().IntVar(&options.Concurrency, "concurrency", 0, "Probes in flight at once (overrides the config file)")
	cmd.Flags().BoolVar(&options.JSON, "json", false, "Print the report as JSON")
	return cmd
}

func (o *checkOptions) run(cmd *cobra.Command, _ []string) error {
	cfg, reg, logger, err := o.setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	limit := cfg.Concurrency
	if o.Concurrency > 0 {
		limit = o.Concurrency
	}

	r := runner.New(logger, probe.DefaultSet(), cfg.RetryBackoff)
	rep := r.RunAll(cmd.Context(), reg, limit)

	if o.JSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), report.Render(rep))
	}

	if code := report.ExitCode(rep); code != report.ExitHealthy {
		return &exitError{code: code}
	}
	return nil
}
