package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/spboyer/promptaudit/internal/cache"
	"github.com/spboyer/promptaudit/internal/dashboard"
	"github.com/spboyer/promptaudit/internal/framework"
	"github.com/spboyer/promptaudit/internal/ux"
	"github.com/spboyer/promptaudit/internal/webserver"
)

type dashboardOptions struct {
	interval  time.Duration
	once      bool
	serve     bool
	port      int
	noBrowser bool
	watch     bool
	snapshot  bool
}

func newDashboardCommand() *cobra.Command {
	var opts dashboardOptions

	cmd := &cobra.Command{
		Use:   "dashboard [project-root]",
		Short: "Monitor framework performance metrics live",
		Long: `Collect performance metrics from a framework tree at a fixed interval,
check them against targets, raise alerts and render a console dashboard.

  --once   collect a single sample, render it and exit
  --serve  also serve the dashboard page and REST API over HTTP
  --watch  rescan immediately when framework files change

Runs until interrupted. With --snapshot the final state is saved as JSON in
the results directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, args, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Collection interval (default from config)")
	cmd.Flags().BoolVar(&opts.once, "once", false, "Collect once, render and exit")
	cmd.Flags().BoolVar(&opts.serve, "serve", false, "Serve the dashboard over HTTP")
	cmd.Flags().IntVar(&opts.port, "port", 0, "HTTP port (default from config)")
	cmd.Flags().BoolVar(&opts.noBrowser, "no-browser", false, "Do not open a browser when serving")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Rescan when framework files change")
	cmd.Flags().BoolVar(&opts.snapshot, "snapshot", false, "Save a snapshot when the dashboard stops")

	return cmd
}

// monitor wires a dashboard to the sources of one project.
type monitor struct {
	d       *dashboard.Dashboard
	tracker *ux.Tracker

	mu  sync.Mutex
	out io.Writer
}

func newMonitor(p *project, out io.Writer) *monitor {
	cfg := p.Config.Dashboard
	d := dashboard.New(
		dashboard.WithMaxPoints(cfg.MaxPoints),
		dashboard.WithAlertHistory(cfg.AlertHistory),
	)

	// The cache_efficiency source needs a cache even when the on-disk one
	// is disabled.
	c := p.Cache
	if c == nil {
		c = cache.New("")
	}
	tracker := ux.NewTracker()
	src := &dashboard.Project{
		Layout:  p.Layout,
		Loader:  framework.NewLoader(c),
		Cache:   c,
		Tracker: tracker,
		Workers: p.Config.Conformance.Workers,
	}
	src.Register(d.Collector)

	m := &monitor{d: d, tracker: tracker, out: out}
	d.Alerts.OnAlert(func(a dashboard.Alert) {
		m.mu.Lock()
		defer m.mu.Unlock()
		dashboard.ConsoleAlerts(m.out)(a)
	})
	return m
}

func (m *monitor) render(an dashboard.Analysis) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dashboard.Render(m.out, an, m.d.Analyzer.Targets(), m.d.Alerts.Active())
}

// rescan collects every metric once as a tracked operation, so scans
// feed the user_satisfaction metric.
func (m *monitor) rescan(ctx context.Context) error {
	_, err := m.tracker.Track(ctx, "Framework scan", time.Second, []string{"Collect", "Analyze"},
		func(ctx context.Context, op *ux.Op) (map[string]any, error) {
			if err := m.d.Collector.Collect(ctx); err != nil {
				return nil, err
			}
			op.Advance("")
			return nil, nil
		})
	m.render(m.d.Update())
	return err
}

func runDashboard(cmd *cobra.Command, args []string, opts dashboardOptions) error {
	p, err := loadProject(args)
	if err != nil {
		return err
	}
	cfg := p.Config.Dashboard
	interval := opts.interval
	if interval <= 0 {
		interval = cfg.Interval
	}
	port := opts.port
	if port <= 0 {
		port = cfg.Port
	}

	m := newMonitor(p, cmd.OutOrStdout())
	ctx := cmd.Context()

	if opts.once {
		if err := m.rescan(ctx); err != nil {
			slog.Warn("collecting metrics", "error", err)
		}
		return saveSnapshot(cmd.OutOrStdout(), p, m.d, opts.snapshot)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.d.Run(ctx, interval, m.render)
	})
	if opts.serve {
		srv, err := webserver.New(webserver.Config{
			Port:      port,
			NoBrowser: opts.noBrowser,
			Version:   version,
			Dashboard: m.d,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🌐 Dashboard at %s\n", srv.URL())
		g.Go(func() error { return srv.ListenAndServe(ctx) })
	}
	if opts.watch {
		g.Go(func() error {
			return dashboard.Watch(ctx, p.Layout.ClaudeDir, dashboard.DefaultDebounce, func() {
				slog.Debug("framework changed, rescanning")
				if err := m.rescan(ctx); err != nil {
					slog.Warn("rescanning framework", "error", err)
				}
			})
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return saveSnapshot(cmd.OutOrStdout(), p, m.d, opts.snapshot)
}

func saveSnapshot(w io.Writer, p *project, d *dashboard.Dashboard, enabled bool) error {
	if !enabled {
		return nil
	}
	dir, err := p.resultsDir()
	if err != nil {
		return err
	}
	path, err := d.Save(dir)
	if err != nil {
		return fmt.Errorf("saving dashboard snapshot: %w", err)
	}
	fmt.Fprintf(w, "📄 Snapshot: %s\n", path)
	return nil
}
