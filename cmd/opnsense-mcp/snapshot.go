package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"opnsense-mcp/internal/adapter"
	"opnsense-mcp/internal/app"
	"opnsense-mcp/internal/loader"
)

func newSnapshotCmd(opts *cliOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture the appliance tables into a YAML snapshot",
		Long: "Capture the appliance tables into a YAML snapshot. Point fixture.path at\n" +
			"the file to serve it later without the appliance.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !opts.cfg.OPNsense.Configured() {
				return fmt.Errorf("no OPNsense appliance configured")
			}
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			client, err := app.NewOPNsenseClient(opts.cfg, adapter.WithLogger(opts.logger))
			if err != nil {
				return err
			}
			snap, err := loader.Capture(ctx, client, opts.logger)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := snap.Write(w); err != nil {
				return err
			}
			if output != "" && output != "-" {
				opts.logger.Info("snapshot written",
					zap.String("path", output),
					zap.Int("arp", len(snap.ARP)),
					zap.Int("dhcpv4", len(snap.DHCPv4)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default: stdout)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print the version",
		Args:              cobra.NoArgs,
		PersistentPreRunE: skipLoad,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "opnsense-mcp %s\n", version)
			return nil
		},
	}
}
