// Package fixtures writes spreadsheets in the layout of the two node health
// exports. It backs the `nodereport sample` command and package tests.
package fixtures

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

const sheet = "Sheet1"

// Event is one alarm report line. AlarmTime may be a time.Time (written as an
// Excel date) or a string (written verbatim).
type Event struct {
	NodeAlias string
	IPAddress string
	Event     string
	AlarmTime any
}

// Sample is one availability report line. Metric values may be numbers or
// strings such as "N/A".
type Sample struct {
	NodeAlias     string
	IPAddress     string
	Availability  any
	LatencyMS     any
	PacketLossPct any
}

// WriteEventLog writes events under five report header lines and a header row
// whose data columns are unlabelled, as the alarm export does.
func WriteEventLog(path string, events []Event) error {
	rows := [][]any{
		{"Alarm Report"},
		{"Generated On", "2024-01-31 23:59"},
		{},
		{"Filter", "All Nodes"},
		{},
		{"", "", "", "Host Name", "", "Description", "", "Clear Time", "Duration"},
	}
	for i, e := range events {
		rows = append(rows, []any{
			i + 1, e.IPAddress, e.NodeAlias, e.NodeAlias, e.Event,
			"Node down", e.AlarmTime, "", "",
		})
	}
	return write(path, rows)
}

// WriteMetricSamples writes samples under an unlabelled header row and five
// report boilerplate lines, as the availability export does.
func WriteMetricSamples(path string, samples []Sample) error {
	rows := [][]any{
		{"", "", "Availability Report"},
		{"Report Period", "Last 30 days"},
		{},
		{"Business Hours", "24x7"},
		{},
		{"Node Alias", "IP Address", "", "", "Availability", "Latency(msec)", "Packet Loss(%)"},
	}
	for _, s := range samples {
		rows = append(rows, []any{
			s.NodeAlias, s.IPAddress, "", "",
			s.Availability, s.LatencyMS, s.PacketLossPct,
		})
	}
	return write(path, rows)
}

func write(path string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// DemoEvents returns a month of alarms across a handful of routers, shaped so
// that every downtime bucket is populated.
func DemoEvents(start time.Time) []Event {
	nodes := []struct {
		alias  string
		ip     string
		alarms int
	}{
		{"RTR-CORE-1", "10.0.0.1", 2},
		{"RTR-CORE-2", "10.0.0.2", 4},
		{"SW-ACCESS-7", "10.0.1.7", 7},
		{"RTR-EDGE-3", "10.0.2.3", 12},
		{"FW-DMZ-1", "10.0.9.1", 3},
	}
	var events []Event
	for n, node := range nodes {
		for i := 0; i < node.alarms; i++ {
			at := start.Add(time.Duration(i*53+n*7) * time.Hour)
			events = append(events, Event{
				NodeAlias: node.alias,
				IPAddress: node.ip,
				Event:     "Node Down",
				AlarmTime: at,
			})
		}
	}
	return events
}

// DemoSamples returns availability rows for the demo nodes. FW-DMZ-1 has no
// sample and one row carries an unparseable packet loss value.
func DemoSamples() []Sample {
	return []Sample{
		{"RTR-CORE-1", "10.0.0.1", 99.95, 4.2, 0.0},
		{"RTR-CORE-2", "10.0.0.2", 99.1, 7.8, 0.4},
		{"SW-ACCESS-7", "10.0.1.7", 97.3, 12.5, 1.9},
		{"RTR-EDGE-3", "10.0.2.3", 91.4, 38.0, 6.5},
		{"RTR-EDGE-3", "10.0.2.3", 50.0, 99.0, 40.0},
		{"AP-LOBBY-2", "10.0.5.2", 98.0, 3.1, "N/A"},
	}
}

// WriteDemo writes a demo pair of exports into dir and returns their paths.
func WriteDemo(dir string, start time.Time) (eventsPath, samplesPath string, err error) {
	eventsPath = filepath.Join(dir, "alarms.xlsx")
	samplesPath = filepath.Join(dir, "availability.xlsx")
	if err := WriteEventLog(eventsPath, DemoEvents(start)); err != nil {
		return "", "", err
	}
	if err := WriteMetricSamples(samplesPath, DemoSamples()); err != nil {
		return "", "", err
	}
	return eventsPath, samplesPath, nil
}
