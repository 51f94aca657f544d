package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/readycheck/internal/config"
	"github.com/hamed0406/readycheck/internal/httpapi"
	apimw "github.com/hamed0406/readycheck/internal/httpapi/middleware"
	"github.com/hamed0406/readycheck/internal/metrics"
	"github.com/hamed0406/readycheck/internal/notify"
	"github.com/hamed0406/readycheck/internal/probe"
	"github.com/hamed0406/readycheck/internal/repo"
	"github.com/hamed0406/readycheck/internal/repo/memory"
	"github.com/hamed0406/readycheck/internal/repo/postgres"
	"github.com/hamed0406/readycheck/internal/report"
	"github.com/hamed0406/readycheck/internal/runner"
	"github.com/hamed0406/readycheck/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	*RootOptions
	Addr string
}

func newCmdServe(root *RootOptions) *cobra.Command {
	options := serveOptions{RootOptions: root}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Re-run the probes on an interval and serve reports, readiness and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE:  options.run,
	}
	cmd.Flags().StringVar(&options.Addr, "addr", "", "Listen address (overrides the config file)")
	return cmd
}

// stores are the report history and alert state, backed by one database or
// by memory.
type stores interface {
	repo.ReportStore
	repo.AlertStore
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (stores, func(), error) {
	if cfg.DatabaseURL == "" {
		return memory.New(cfg.History), func() {}, nil
	}
	pg, err := postgres.New(ctx, cfg.DatabaseURL, cfg.History, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

func (o *serveOptions) run(cmd *cobra.Command, _ []string) error {
	cfg, reg, logger, err := o.setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if o.Addr != "" {
		cfg.Addr = o.Addr
	}

	ctx := cmd.Context()
	store, closeStore, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("store_open_error", zap.Error(err))
		return &exitError{code: report.ExitUnhealthy, err: err}
	}
	defer closeStore()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)

	notifiers := notify.Multi{notify.Log{Logger: logger}}
	if s := notify.NewSlack(cfg.SlackWebhook); s != nil {
		notifiers = append(notifiers, s)
	}
	alerter := scheduler.NewAlerter(store, notifiers, scheduler.AlerterConfig{
		AlertOnRecovery: cfg.AlertRecovery,
		Cooldown:        cfg.AlertCooldown,
	})

	r := runner.New(logger, probe.DefaultSet(), cfg.RetryBackoff, m)
	watcher := scheduler.NewWatcher(logger, r, reg, store, cfg.Interval, cfg.Concurrency, alerter)

	api := httpapi.NewServer(logger, store, reg, watcher, promReg)
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.Router(httpapi.RouterOptions{
			Keys:          keys,
			Origins:       cfg.CORSOrigins,
			RunsPerMinute: cfg.RunsPerMinute,
			TrustProxy:    cfg.TrustProxyHeaders,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		watcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("api_listen", zap.String("addr", cfg.Addr), zap.Int("probes", reg.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		logger.Info("api_shutdown")
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("serve_error", zap.Error(err))
		return &exitError{code: report.ExitUnhealthy, err: err}
	}
	return nil
}
