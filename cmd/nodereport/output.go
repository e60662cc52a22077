package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/anushreehmm/nodedown/pkg/reportapi"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	headerColor  = color.New(color.FgWhite, color.Bold)
)

// printer writes command results to one stream in the selected format.
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch format {
	case "", formatTable:
		format = formatTable
	case formatJSON, formatYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
	return &printer{w: w, format: format}, nil
}

func (p *printer) structured() bool {
	return p.format != formatTable
}

// encode writes v as JSON or YAML. It is a no-op in table mode.
func (p *printer) encode(v any) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return nil
}

func (p *printer) success(format string, a ...any) {
	successColor.Fprintf(p.w, "✓ "+format+"\n", a...)
}

func (p *printer) info(format string, a ...any) {
	infoColor.Fprintf(p.w, format+"\n", a...)
}

func (p *printer) warn(format string, a ...any) {
	warnColor.Fprintf(p.w, "⚠ "+format+"\n", a...)
}

func printError(w io.Writer, err error) {
	errorColor.Fprintf(w, "✗ %v\n", err)
}

func (p *printer) table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, h := range headers {
		headerColor.Fprintf(p.w, "%-*s  ", widths[i], h)
	}
	fmt.Fprintln(p.w)
	for i := range headers {
		fmt.Fprint(p.w, strings.Repeat("-", widths[i])+"  ")
	}
	fmt.Fprintln(p.w)
	for _, row := range rows {
		for i, cell := range row {
			fmt.Fprintf(p.w, "%-*s  ", widths[i], cell)
		}
		fmt.Fprintln(p.w)
	}
}

func (p *printer) stats(stats reportapi.StatsResponse) error {
	if p.structured() {
		return p.encode(stats)
	}
	p.info("Generation: %s", stats.Generation)
	p.info("Loaded at:  %s", stats.LoadedAt.UTC().Format("2006-01-02 15:04:05"))
	p.info("Records:    %d across %d nodes", stats.Records, stats.Nodes)

	var rows [][]string
	for _, s := range []reportapi.CleanStats{stats.EventLog, stats.MetricSamples} {
		rows = append(rows, []string{
			s.Source,
			fmt.Sprint(s.RowsRead),
			fmt.Sprint(s.RowsKept),
			fmt.Sprint(s.RowsDropped),
			formatReasons(s.DropReasons),
		})
	}
	p.table([]string{"SOURCE", "READ", "KEPT", "DROPPED", "REASONS"}, rows)

	p.info("Join: %d matched, %d unmatched", stats.Join.Matched, stats.Join.Unmatched)
	if stats.Join.AmbiguousKeys > 0 {
		p.warn("%d IP addresses had more than one metric sample; the first was used", stats.Join.AmbiguousKeys)
	}
	return nil
}

func (p *printer) nodes(nodes []reportapi.NodeDowntime) {
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, []string{n.NodeAlias, fmt.Sprint(n.DowntimeCount)})
	}
	p.table([]string{"NODE", "DOWNTIME"}, rows)
}

func (p *printer) records(records []reportapi.Record) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.NodeAlias,
			r.IPAddress,
			r.Event,
			r.AlarmTime.UTC().Format("2006-01-02 15:04:05"),
			formatMetric(r.Availability),
			formatMetric(r.LatencyMS),
			formatMetric(r.PacketLossPct),
		})
	}
	p.table([]string{"NODE", "IP", "EVENT", "ALARM TIME", "AVAILABILITY", "LATENCY MS", "PACKET LOSS %"}, rows)
}

func formatMetric(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

func formatReasons(reasons map[string]int) string {
	if len(reasons) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, reasons[k]))
	}
	return strings.Join(parts, ", ")
}
