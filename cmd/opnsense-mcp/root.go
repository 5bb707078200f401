package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"opnsense-mcp/internal/config"
	"opnsense-mcp/internal/logging"
)

type cliOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg        *config.Config
	configFile string
	logger     *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "opnsense-mcp",
		Short:         "MCP tool server for OPNsense firewalls",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return opts.load()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: search path)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "override logging.format (console or json)")

	root.AddCommand(
		newServeCmd(&opts),
		newStdioCmd(&opts),
		newOUICmd(&opts),
		newConfigCmd(&opts),
		newSnapshotCmd(&opts),
		newVersionCmd(),
	)
	return root
}

// load reads the config and builds the logger. Flags win over the file.
func (o *cliOptions) load() error {
	cfg, path, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.configFile = path
	o.logger = logger
	if path != "" {
		logger.Debug("loaded config", zap.String("path", path))
	}
	return nil
}

// skipLoad replaces the root hook for commands that must work without a
// readable config
func skipLoad(*cobra.Command, []string) error { return nil }
