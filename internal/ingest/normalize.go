package ingest

import (
	"strings"

	"github.com/anushreehmm/nodedown/internal/models"
)

// NormalizedTable holds only the recognised columns of a source, renamed to
// their semantic fields. Values are still untyped text.
type NormalizedTable struct {
	Kind   models.SourceKind
	Fields []models.Field
	Rows   [][]string
	// FirstRow is the raw row index of Rows[0], for diagnostics.
	FirstRow int

	index map[models.Field]int
}

// Value returns the cell of field in row i, or "" for an unmapped field.
func (t *NormalizedTable) Value(i int, field models.Field) string {
	col, ok := t.index[field]
	if !ok {
		return ""
	}
	return t.Rows[i][col]
}

// Len returns the number of data rows.
func (t *NormalizedTable) Len() int {
	return len(t.Rows)
}

// Normalize applies a descriptor to a raw table. It is pure: the raw table is
// not modified.
func Normalize(raw *RawTable, d Descriptor) (*NormalizedTable, error) {
	if raw == nil || len(raw.Rows) <= d.SkipRows {
		return nil, mismatch(d.Kind, "no header row after skipping %d rows", d.SkipRows)
	}
	if need := d.maxPosition() + 1; raw.Width < need {
		return nil, mismatch(d.Kind, "expected at least %d columns, found %d", need, raw.Width)
	}

	header := raw.Rows[d.SkipRows]
	for _, col := range d.Columns {
		if label := header[col.Position]; !col.accepts(label) {
			return nil, mismatch(d.Kind, "column %d is labelled %q, expected %s", col.Position, strings.TrimSpace(label), col.Field)
		}
	}

	table := &NormalizedTable{
		Kind:   d.Kind,
		Fields: make([]models.Field, len(d.Columns)),
		index:  make(map[models.Field]int, len(d.Columns)),
	}
	for i, col := range d.Columns {
		table.Fields[i] = col.Field
		table.index[col.Field] = i
	}

	start := d.SkipRows + 1 + d.DiscardRows
	table.FirstRow = start
	if start >= len(raw.Rows) {
		return table, nil
	}
	table.Rows = make([][]string, 0, len(raw.Rows)-start)
	for _, row := range raw.Rows[start:] {
		out := make([]string, len(d.Columns))
		for i, col := range d.Columns {
			out[i] = row[col.Position]
		}
		table.Rows = append(table.Rows, out)
	}
	return table, nil
}
