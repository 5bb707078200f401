package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"opnsense-mcp/internal/app"
	"opnsense-mcp/internal/mcpserver"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	var (
		host    string
		port    int
		metrics bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over HTTP, JSON-RPC and SSE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("host") {
				opts.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				opts.cfg.Server.Port = port
			}
			if cmd.Flags().Changed("metrics") {
				opts.cfg.Server.Metrics = metrics
			}
			if err := opts.cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			a, err := app.New(ctx, opts.cfg, opts.logger, version)
			if err != nil {
				return err
			}
			defer a.Close()

			opts.logger.Info("starting opnsense-mcp",
				zap.String("version", version),
				zap.String("config", opts.configFile))
			return a.Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "expose /metrics (overrides server.metrics)")
	return cmd
}

func newStdioCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve the tools as an MCP server on stdin and stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			a, err := app.New(ctx, opts.cfg, opts.logger, version)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := mcpserver.New(a.Registry, version, opts.logger)
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				// EOF on stdin ends the session
				defer cancel()
				return srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			})
			g.Go(func() error { return a.Watch(ctx) })
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
