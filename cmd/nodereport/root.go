package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/anushreehmm/nodedown/internal/config"
	"github.com/anushreehmm/nodedown/internal/engine"
	"github.com/anushreehmm/nodedown/internal/ingest"
	"github.com/anushreehmm/nodedown/internal/utils"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	output     string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "nodereport",
		Short: "Node downtime and availability reports",
		Long: `nodereport ingests an alarm/event export and an availability export,
joins them on IP address and answers downtime and availability questions
about the monitored nodes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default $NODEDOWN_CONFIG)")
	flags.StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	flags.StringVarP(&opts.output, "output", "o", formatTable, "output format (table, json, yaml)")

	cmd.AddCommand(
		newServeCommand(opts),
		newCleanCommand(opts),
		newQueryCommand(opts),
		newSampleCommand(opts),
	)
	return cmd
}

// sourceFlags lets a command point at exports without a config file.
type sourceFlags struct {
	events  string
	samples string
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.events, "events", "", "alarm/event export (overrides sources.eventLog.path)")
	cmd.Flags().StringVar(&s.samples, "samples", "", "availability export (overrides sources.metricSamples.path)")
}

func (s *sourceFlags) apply(cfg *config.Config) {
	if s.events != "" {
		cfg.Sources.EventLog.Path = s.events
	}
	if s.samples != "" {
		cfg.Sources.MetricSamples.Path = s.samples
	}
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

func (o *rootOptions) printer(cmd *cobra.Command) (*printer, error) {
	return newPrinter(cmd.OutOrStdout(), o.output)
}

// newLogger logs to stderr so command output on stdout stays parseable.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return utils.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.JSON)
}

func buildPipeline(cfg *config.Config, logger *slog.Logger) (*engine.Pipeline, error) {
	descriptors, err := ingest.LoadDescriptors(cfg.Schema.Path)
	if err != nil {
		return nil, fmt.Errorf("load source schema: %w", err)
	}
	cleaner := ingest.NewCleaner(logger, descriptors)
	return engine.NewPipeline(logger, cleaner, engine.Sources{
		EventLog: ingest.Source{
			Path:  cfg.Sources.EventLog.Path,
			Sheet: cfg.Sources.EventLog.Sheet,
		},
		MetricSamples: ingest.Source{
			Path:  cfg.Sources.MetricSamples.Path,
			Sheet: cfg.Sources.MetricSamples.Sheet,
		},
	}), nil
}
