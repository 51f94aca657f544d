package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hamed0406/readycheck/internal/config"
	"github.com/hamed0406/readycheck/internal/registry"
)

func newCmdValidate(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config file without running any probe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.ConfigPath)
			if err != nil {
				return configError(err)
			}
			reg, err := registry.Build(cfg)
			if err != nil {
				return configError(err)
			}
			preflight(cmd.OutOrStdout(), cfg, reg)
			return nil
		},
	}
}

// preflight lists the probes and warns about server settings that are legal
// but probably unintended.
func preflight(w io.Writer, cfg *config.Config, reg *registry.Registry) {
	ok := func(format string, args ...any) { fmt.Fprintf(w, "✔ "+format+"\n", args...) }
	warn := func(format string, args ...any) { fmt.Fprintf(w, "⚠ "+format+"\n", args...) }

	for _, d := range reg.All() {
		ok("%s (%s, timeout %s, retries %d)", d.Name, d.Kind, d.Timeout, d.Retries)
	}
	if reg.Len() == 0 {
		warn("no probes configured; every run will be trivially healthy")
	}

	if len(cfg.AdminAPIKeys) == 0 {
		warn("admin_api_keys is empty; POST /api/runs is open to anyone who can reach %s", cfg.Addr)
	}
	if len(cfg.PublicAPIKeys) == 0 && len(cfg.AdminAPIKeys) == 0 {
		warn("no API keys configured; report endpoints are unauthenticated")
	}
	if cfg.DatabaseURL == "" {
		warn("database_url empty; report history is kept in memory (%d reports)", cfg.History)
	} else {
		ok("database_url present")
	}
	if cfg.SlackWebhook == "" {
		warn("slack_webhook empty; alerts only go to the log")
	}
	ok("config valid: %d probes", reg.Len())
}
