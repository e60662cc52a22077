package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/anushreehmm/nodedown/internal/fixtures"
)

func newSampleCommand(root *rootOptions) *cobra.Command {
	var (
		dir   string
		start string
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a demo pair of exports in the expected layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := root.printer(cmd)
			if err != nil {
				return err
			}
			from, err := time.Parse("2006-01-02", start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
			events, samples, err := fixtures.WriteDemo(dir, from)
			if err != nil {
				return err
			}
			if p.structured() {
				return p.encode(map[string]string{"events": events, "samples": samples})
			}
			p.success("Alarm export written to %s", events)
			p.success("Availability export written to %s", samples)
			p.info("Try: nodereport clean --events %s --samples %s", events, samples)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to write the exports into")
	cmd.Flags().StringVar(&start, "start", "2024-01-01", "first alarm date (YYYY-MM-DD)")
	return cmd
}
