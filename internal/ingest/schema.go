package ingest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/anushreehmm/nodedown/internal/models"
)

// ColumnSpec maps one raw column position to a semantic field.
type ColumnSpec struct {
	Position int          `yaml:"position"`
	Field    models.Field `yaml:"field"`
	// Aliases are header labels accepted at Position besides a blank cell.
	Aliases []string `yaml:"aliases"`
}

// Descriptor declares where the data of one source kind lives.
type Descriptor struct {
	Kind models.SourceKind `yaml:"kind"`
	// SkipRows is the number of raw rows above the header row.
	SkipRows int `yaml:"skipRows"`
	// DiscardRows is the number of rows under the header that are boilerplate.
	DiscardRows int          `yaml:"discardRows"`
	Columns     []ColumnSpec `yaml:"columns"`
}

// Descriptors holds the profile of each source kind.
type Descriptors struct {
	EventLog      Descriptor `yaml:"eventLog"`
	MetricSamples Descriptor `yaml:"metricSamples"`
}

var (
	eventLogFields      = []models.Field{models.FieldNodeAlias, models.FieldIPAddress, models.FieldEvent, models.FieldAlarmTime}
	metricSampleFields  = []models.Field{models.FieldNodeAlias, models.FieldIPAddress, models.FieldAvailability, models.FieldLatencyMS, models.FieldPacketLossPct}
	errDescriptorFields = errors.New("descriptor fields")
)

// DefaultEventLogDescriptor describes the alarm report export: five lines of
// report header, then a header row whose data columns are unlabelled.
// Serial number, host name, description, clear time and duration are dropped.
func DefaultEventLogDescriptor() Descriptor {
	return Descriptor{
		Kind:     models.SourceEventLog,
		SkipRows: 5,
		Columns: []ColumnSpec{
			{Position: 1, Field: models.FieldIPAddress, Aliases: []string{"IP Address", "IP"}},
			{Position: 2, Field: models.FieldNodeAlias, Aliases: []string{"Node Alias", "Node"}},
			{Position: 4, Field: models.FieldEvent, Aliases: []string{"Event"}},
			{Position: 6, Field: models.FieldAlarmTime, Aliases: []string{"Alarm Time"}},
		},
	}
}

// DefaultMetricSampleDescriptor describes the availability report export:
// an unlabelled header row followed by five rows of report boilerplate.
// Columns 2 and 3 are placeholders and are dropped.
func DefaultMetricSampleDescriptor() Descriptor {
	return Descriptor{
		Kind:        models.SourceMetricSamples,
		DiscardRows: 5,
		Columns: []ColumnSpec{
			{Position: 0, Field: models.FieldNodeAlias, Aliases: []string{"Node Alias", "Node"}},
			{Position: 1, Field: models.FieldIPAddress, Aliases: []string{"IP Address", "IP"}},
			{Position: 4, Field: models.FieldAvailability, Aliases: []string{"Availability", "Availability(%)"}},
			{Position: 5, Field: models.FieldLatencyMS, Aliases: []string{"Latency(msec)", "Latency"}},
			{Position: 6, Field: models.FieldPacketLossPct, Aliases: []string{"Packet Loss(%)", "Packet Loss"}},
		},
	}
}

// DefaultDescriptors returns the built-in profiles.
func DefaultDescriptors() Descriptors {
	return Descriptors{
		EventLog:      DefaultEventLogDescriptor(),
		MetricSamples: DefaultMetricSampleDescriptor(),
	}
}

// LoadDescriptors reads profile overrides from a YAML file. An empty path or a
// missing file yields the defaults; a profile absent from the file keeps its
// default.
func LoadDescriptors(path string) (Descriptors, error) {
	descriptors := DefaultDescriptors()
	if path == "" {
		return descriptors, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return descriptors, nil
		}
		return Descriptors{}, fmt.Errorf("read schema file: %w", err)
	}

	var file Descriptors
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Descriptors{}, fmt.Errorf("parse schema file: %w", err)
	}
	if len(file.EventLog.Columns) > 0 {
		file.EventLog.Kind = models.SourceEventLog
		descriptors.EventLog = file.EventLog
	}
	if len(file.MetricSamples.Columns) > 0 {
		file.MetricSamples.Kind = models.SourceMetricSamples
		descriptors.MetricSamples = file.MetricSamples
	}
	if err := descriptors.Validate(); err != nil {
		return Descriptors{}, err
	}
	return descriptors, nil
}

// Validate checks that each profile maps exactly the fields its kind requires.
func (d Descriptors) Validate() error {
	if err := d.EventLog.validate(eventLogFields); err != nil {
		return err
	}
	return d.MetricSamples.validate(metricSampleFields)
}

func (d Descriptor) validate(required []models.Field) error {
	if d.SkipRows < 0 || d.DiscardRows < 0 {
		return fmt.Errorf("%w: %s row offsets must not be negative", errDescriptorFields, d.Kind)
	}
	seenField := make(map[models.Field]bool, len(d.Columns))
	seenPos := make(map[int]bool, len(d.Columns))
	for _, col := range d.Columns {
		if col.Position < 0 {
			return fmt.Errorf("%w: %s column %s has negative position", errDescriptorFields, d.Kind, col.Field)
		}
		if seenPos[col.Position] {
			return fmt.Errorf("%w: %s position %d mapped twice", errDescriptorFields, d.Kind, col.Position)
		}
		if seenField[col.Field] {
			return fmt.Errorf("%w: %s field %s mapped twice", errDescriptorFields, d.Kind, col.Field)
		}
		seenPos[col.Position] = true
		seenField[col.Field] = true
	}
	var missing []string
	for _, field := range required {
		if !seenField[field] {
			missing = append(missing, string(field))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s missing %s", errDescriptorFields, d.Kind, strings.Join(missing, ", "))
	}
	if len(d.Columns) != len(required) {
		return fmt.Errorf("%w: %s maps unknown fields", errDescriptorFields, d.Kind)
	}
	return nil
}

// maxPosition is the rightmost raw column the descriptor depends on.
func (d Descriptor) maxPosition() int {
	max := -1
	for _, col := range d.Columns {
		if col.Position > max {
			max = col.Position
		}
	}
	return max
}

func (c ColumnSpec) accepts(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" || strings.EqualFold(label, string(c.Field)) {
		return true
	}
	for _, alias := range c.Aliases {
		if strings.EqualFold(label, alias) {
			return true
		}
	}
	return false
}
