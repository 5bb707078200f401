// Package app assembles the server from configuration and owns the
// lifetime of everything it starts.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"opnsense-mcp/internal/adapter"
	"opnsense-mcp/internal/config"
	"opnsense-mcp/internal/domain"
	"opnsense-mcp/internal/handler"
	"opnsense-mcp/internal/hub"
	"opnsense-mcp/internal/loader"
	"opnsense-mcp/internal/oui"
	"opnsense-mcp/internal/repository"
	"opnsense-mcp/internal/repository/sqlite"
	"opnsense-mcp/internal/service"
	"opnsense-mcp/internal/telemetry"
	"opnsense-mcp/internal/tools"
	"opnsense-mcp/internal/watcher"
)

// shutdownTimeout bounds graceful HTTP shutdown
const shutdownTimeout = 10 * time.Second

// App is the server context. Handlers reach shared state through it rather
// than through package globals.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *telemetry.PrometheusMetrics
	Upstream domain.Upstream
	Hosts    *service.HostService
	Registry *tools.Registry
	Hub      *hub.Hub
	OUI      *oui.Loader

	version  string
	repo     *sqlite.Repository
	snapshot *loader.SnapshotUpstream
}

// New builds the server context from cfg. A missing appliance is not an
// error: the tools serve their fixtures.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, version string) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: telemetry.NewPrometheusMetrics(prometheus.NewRegistry()),
		version: version,
	}

	if err := a.initOUI(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initUpstream(); err != nil {
		a.Close()
		return nil, err
	}

	var resolvers []domain.HostResolver
	if cfg.Nmap.Enabled {
		if nm := a.nmapResolver(ctx); nm != nil {
			resolvers = append(resolvers, nm)
		}
	}

	a.Hosts = service.NewHostService(a.Upstream, a.OUI.Table(), logger, resolvers...)
	a.Registry = tools.NewRegistry(logger, tools.WithMetrics(a.Metrics))
	tools.NewToolset(a.Hosts, logger).Register(a.Registry)
	a.Hub = hub.New(logger,
		hub.WithMaxQueue(cfg.Server.MaxQueue),
		hub.WithMetrics(a.Metrics))
	return a, nil
}

func (a *App) initOUI(ctx context.Context) error {
	cfg := a.Config.OUI
	if cfg.Database.Path != "" {
		repo, err := sqlite.New(config.ExpandHome(cfg.Database.Path))
		if err != nil {
			return fmt.Errorf("open OUI database: %w", err)
		}
		a.repo = repo
	}

	var repo repository.VendorRepository
	if a.repo != nil {
		repo = a.repo
	}
	a.OUI = oui.NewLoader(oui.NewTable(nil), repo, config.ExpandHome(cfg.CSVPath), a.Logger)
	if err := a.OUI.Load(ctx); err != nil {
		a.Logger.Warn("OUI table not loaded, vendor lookups limited to private MACs", zap.Error(err))
	}
	return nil
}

func (a *App) initUpstream() error {
	cfg := a.Config
	switch {
	case cfg.Fixture.Path != "":
		snap, err := loader.NewSnapshotUpstream(config.ExpandHome(cfg.Fixture.Path), a.Logger)
		if err != nil {
			return err
		}
		a.snapshot = snap
		a.Upstream = snap
		a.Logger.Info("serving appliance snapshot", zap.String("path", snap.Path()))

	case cfg.OPNsense.Configured():
		client, err := NewOPNsenseClient(cfg, adapter.WithUpstreamMetrics(a.Metrics), adapter.WithLogger(a.Logger))
		if err != nil {
			return err
		}
		a.Upstream = client
		a.Logger.Info("using OPNsense appliance", zap.String("url", client.BaseURL()))

	default:
		a.Logger.Warn("no OPNsense appliance configured, tools will return fixtures")
	}
	return nil
}

// nmapResolver returns nil when there is nothing to scan or nmap cannot run.
// Without configured subnets it scans the private networks of this host.
func (a *App) nmapResolver(ctx context.Context) *adapter.NmapResolver {
	cfg := a.Config.Nmap
	subnets := cfg.Subnets
	if len(subnets) == 0 {
		local, err := adapter.LocalSubnets()
		if err != nil {
			a.Logger.Warn("list local subnets", zap.Error(err))
		}
		subnets = local
		a.Logger.Info("nmap scanning local subnets", zap.Strings("subnets", subnets))
	}
	if len(subnets) == 0 {
		a.Logger.Warn("nmap enabled but no subnets to scan, scanning disabled")
		return nil
	}

	nm := adapter.NewNmapResolver(subnets, a.Logger,
		adapter.WithTimeout(cfg.Timeout.Duration()),
		adapter.WithSkipHostDiscovery(cfg.SkipHostDiscovery),
		adapter.WithSweepTTL(cfg.SweepTTL.Duration()))
	if !nm.Available(ctx) {
		a.Logger.Warn("nmap enabled but not runnable, scanning disabled")
		return nil
	}
	return nm
}

// NewOPNsenseClient builds the appliance client from the opnsense section
func NewOPNsenseClient(cfg *config.Config, opts ...adapter.OPNsenseOption) (*adapter.OPNsenseClient, error) {
	client, err := adapter.NewOPNsenseClient(adapter.OPNsenseConfig{
		Host:      cfg.OPNsense.Host,
		APIKey:    cfg.OPNsense.APIKey,
		APISecret: cfg.OPNsense.APISecret,
		VerifySSL: cfg.OPNsense.VerifySSL,
		Timeout:   cfg.OPNsense.Timeout.Duration(),
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OPNsense client: %w", err)
	}
	return client, nil
}

// Handler returns the HTTP surface wrapped in the middleware chain
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	handler.New(a.Registry, a.Hub, a.Logger, handler.WithVersion(a.version)).Routes(mux)
	mux.Handle("GET /sse", hub.NewHandler(a.Hub, a.Config.Server.KeepAlive.Duration()))
	if a.Config.Server.Metrics {
		mux.Handle("GET /metrics", a.Metrics.Handler())
	}
	return handler.Chain(mux,
		handler.Recover(a.Logger),
		handler.CORS(a.Config.Server.CORSOrigins),
		handler.Logger(a.Logger),
	)
}

// Watch runs the file watchers until ctx is cancelled
func (a *App) Watch(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if a.Config.OUI.Watch {
		g.Go(func() error { return a.OUI.Watch(ctx) })
	}
	if a.snapshot != nil {
		w := watcher.New(a.snapshot.Path(), func() {
			if err := a.snapshot.Reload(); err != nil {
				a.Logger.Warn("reload snapshot", zap.Error(err))
			}
		}, a.Logger)
		g.Go(func() error {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Serve runs the HTTP server and the watchers until ctx is cancelled, then
// shuts down gracefully
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error { return a.Watch(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("shutting down server")
		// SSE streams only end once their subscriptions are released
		a.Hub.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases the broker and the OUI database
func (a *App) Close() error {
	if a.Hub != nil {
		a.Hub.Shutdown()
	}
	if a.repo != nil {
		return a.repo.Close()
	}
	return nil
}
