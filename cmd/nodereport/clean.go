package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anushreehmm/nodedown/internal/api"
	"github.com/anushreehmm/nodedown/internal/engine"
)

type cleanOptions struct {
	sources     sourceFlags
	write       string
	writeFormat string
}

func newCleanCommand(root *rootOptions) *cobra.Command {
	opts := &cleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Ingest both exports once and report cleaning statistics",
		Long: `Run the cleaning and join pipeline once and print how many rows each
export contributed. With --write the unified table is saved as CSV or JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, root, opts)
		},
	}

	opts.sources.register(cmd)
	cmd.Flags().StringVar(&opts.write, "write", "", "write the unified table to this file")
	cmd.Flags().StringVar(&opts.writeFormat, "write-format", "", "format of --write (csv or json, default from extension)")
	return cmd
}

func runClean(cmd *cobra.Command, root *rootOptions, opts *cleanOptions) error {
	p, err := root.printer(cmd)
	if err != nil {
		return err
	}
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	opts.sources.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	dataset, err := pipeline.Build(cmd.Context())
	if err != nil {
		return err
	}

	if opts.write != "" {
		format := opts.writeFormat
		if format == "" {
			format = strings.TrimPrefix(strings.ToLower(filepath.Ext(opts.write)), ".")
		}
		if err := writeDataset(opts.write, format, dataset); err != nil {
			return err
		}
	}

	if err := p.stats(api.ToAPIStats(dataset.Stats())); err != nil {
		return err
	}
	if opts.write != "" && !p.structured() {
		p.success("Unified table written to %s", opts.write)
	}
	return nil
}

func writeDataset(path, format string, dataset *engine.Dataset) (err error) {
	var encode func(io.Writer) error
	switch format {
	case "csv":
		encode = dataset.WriteCSV
	case "json":
		encode = func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(api.ToAPIRecords(dataset.Records()))
		}
	default:
		return fmt.Errorf("unknown write format %q (want csv or json)", format)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := encode(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
