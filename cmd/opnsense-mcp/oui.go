package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"opnsense-mcp/internal/config"
	"opnsense-mcp/internal/oui"
	"opnsense-mcp/internal/repository"
	"opnsense-mcp/internal/repository/sqlite"
)

func newOUICmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oui",
		Short: "Manage the MAC vendor database",
	}
	cmd.AddCommand(
		newOUIImportCmd(opts),
		newOUIUpdateCmd(opts),
		newOUILookupCmd(opts),
	)
	return cmd
}

func openVendorDB(opts *cliOptions) (*sqlite.Repository, error) {
	path := opts.cfg.OUI.Database.Path
	if path == "" {
		return nil, fmt.Errorf("oui.database.path is not set")
	}
	repo, err := sqlite.New(config.ExpandHome(path))
	if err != nil {
		return nil, fmt.Errorf("open OUI database: %w", err)
	}
	return repo, nil
}

func newOUIImportCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <oui.csv>",
		Short: "Replace the vendor database with an IEEE CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openVendorDB(opts)
			if err != nil {
				return err
			}
			defer repo.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := oui.Import(cmd.Context(), repo, f, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d vendors from %s\n", n, args[0])
			return nil
		},
	}
}

func newOUIUpdateCmd(opts *cliOptions) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Download the IEEE registry and replace the vendor database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if url == "" {
				url = opts.cfg.OUI.SourceURL
			}
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			repo, err := openVendorDB(opts)
			if err != nil {
				return err
			}
			defer repo.Close()

			opts.logger.Info("downloading OUI registry", zap.String("url", url))
			body, err := oui.Download(ctx, nil, url)
			if err != nil {
				return err
			}
			defer body.Close()

			n, err := oui.Import(ctx, repo, body, url)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d vendors from %s\n", n, url)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "registry URL (default: oui.source_url)")
	return cmd
}

func newOUILookupCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <mac>...",
		Short: "Print the vendor for one or more MAC addresses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var repo repository.VendorRepository
			if opts.cfg.OUI.Database.Path != "" {
				db, err := openVendorDB(opts)
				if err != nil {
					return err
				}
				defer db.Close()
				repo = db
			}
			loader := oui.NewLoader(oui.NewTable(nil), repo, config.ExpandHome(opts.cfg.OUI.CSVPath), opts.logger)
			if err := loader.Load(cmd.Context()); err != nil {
				opts.logger.Warn("OUI table not loaded", zap.Error(err))
			}

			out := cmd.OutOrStdout()
			for _, mac := range args {
				vendor := loader.Table().Lookup(mac)
				if vendor == "" {
					vendor = "Unknown"
				}
				fmt.Fprintf(out, "%s\t%s\n", mac, vendor)
			}
			return nil
		},
	}
}
