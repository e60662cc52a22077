package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/anushreehmm/nodedown/pkg/reportapi"
)

type queryOptions struct {
	server  string
	timeout time.Duration
}

func (o *queryOptions) client() *reportapi.Client {
	return reportapi.NewClient(o.server, o.timeout)
}

func newQueryCommand(root *rootOptions) *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a running report server",
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:8080", "report API base URL")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")

	cmd.AddCommand(
		newQueryReportCommand(root, opts),
		newQueryNodesCommand(root, opts),
		newQuerySeriesCommand(root, opts),
		newQueryBoundsCommand(root, opts),
		newQueryStatsCommand(root, opts),
		newQueryReloadCommand(root, opts),
	)
	return cmd
}

func newQueryReportCommand(root *rootOptions, opts *queryOptions) *cobra.Command {
	var params reportapi.ReportParams

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Nodes and records within a date range and downtime bucket",
		Example: `  nodereport query report --start 2024-01-01 --end 2024-01-31 --bucket ">5"
  nodereport query report --bucket 4-5 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := root.printer(cmd)
			if err != nil {
				return err
			}
			resp, err := opts.client().Report(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("failed to fetch report: %w", err)
			}
			if p.structured() {
				return p.encode(resp)
			}
			if len(resp.Nodes) == 0 {
				p.info("No nodes in bucket %s", resp.Bucket)
				return nil
			}
			p.nodes(resp.Nodes)
			p.info("\n%d nodes in bucket %s, %d records", len(resp.Nodes), resp.Bucket, resp.Count)
			return nil
		},
	}
	cmd.Flags().StringVar(&params.Start, "start", "", "start date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&params.End, "end", "", "end date, inclusive (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&params.Bucket, "bucket", "", "downtime bucket (1-3, 4-5, >5, >10; default 1-3)")
	return cmd
}

func newQueryNodesCommand(root *rootOptions, opts *queryOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "nodes",
		Aliases: []string{"ls"},
		Short:   "Every node with its downtime count",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := root.printer(cmd)
			if err != nil {
				return err
			}
			resp, err := opts.client().Nodes(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list nodes: %w", err)
			}
			if p.structured() {
				return p.encode(resp)
			}
			if len(resp.Nodes) == 0 {
				p.info("No nodes found")
				return nil
			}
			p.nodes(resp.Nodes)
			return nil
		},
	}
}

func newQuerySeriesCommand(root *rootOptions, opts *queryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "series [node-alias]",
		Short: "Alarm and metric series of one node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := root.printer(cmd)
			if err != nil {
				return err
			}
			resp, err := opts.client().Series(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to fetch series: %w", err)
			}
			if p.structured() {
				return p.encode(resp)
			}
			if len(resp.Points) == 0 {
				p.info("No records for node %s", args[0])
				return nil
			}
			records := make([]reportapi.Record, 0, len(resp.Points))
			for _, pt := range resp.Points {
				records = append(records, reportapi.Record{
					NodeAlias:     resp.NodeAlias,
					Event:         pt.Event,
					AlarmTime:     pt.AlarmTime,
					Availability:  pt.Availability,
					LatencyMS:     pt.LatencyMS,
					PacketLossPct: pt.PacketLossPct,
				})
			}
			p.records(records)
			p.info("\n%d distinct alarm times", len(resp.DowntimeTimeline))
			return nil
		},
	}
}

func newQueryBoundsCommand(root *rootOptions, opts *queryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bounds",
		Short: "Earliest and latest alarm time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := root.printer(cmd)
			if err != nil {
				return err
			}
			resp, err := opts.client().Bounds(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch bounds: %w", err)
			}
			if p.structured() {
				return p.encode(resp)
			}
			if resp.Start == nil || resp.End == nil {
				p.info("Dataset is empty")
				return nil
			}
			p.info("Start: %s", resp.Start.Format(time.RFC3339))
			p.info("End:   %s", resp.End.Format(time.RFC3339))
			return nil
		},
	}
}

func newQueryStatsCommand(root *rootOptions, opts *queryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Cleaning and join statistics of the live dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := root.printer(cmd)
			if err != nil {
				return err
			}
			resp, err := opts.client().Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch stats: %w", err)
			}
			return p.stats(resp)
		},
	}
}

func newQueryReloadCommand(root *rootOptions, opts *queryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask the server to re-ingest its exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := root.printer(cmd)
			if err != nil {
				return err
			}
			resp, err := opts.client().Reload(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to reload: %w", err)
			}
			if !p.structured() {
				p.success("Reloaded, generation %s", resp.Generation)
			}
			return p.stats(resp)
		},
	}
}
