package ingest

import (
	"errors"
	"fmt"

	"github.com/anushreehmm/nodedown/internal/models"
)

var (
	// ErrSourceUnreadable signals a file that is missing, corrupt or not tabular.
	ErrSourceUnreadable = errors.New("source unreadable")
	// ErrSchemaMismatch signals a source whose layout no longer matches its descriptor.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// SourceError ties a fatal ingestion failure to the source it came from.
type SourceError struct {
	Kind models.SourceKind
	Path string
	Op   string
	Err  error
}

func (e *SourceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func unreadable(kind models.SourceKind, path string, err error) error {
	return &SourceError{Kind: kind, Path: path, Op: "read", Err: fmt.Errorf("%w: %v", ErrSourceUnreadable, err)}
}

func mismatch(kind models.SourceKind, format string, args ...any) error {
	return &SourceError{Kind: kind, Op: "normalize", Err: fmt.Errorf("%w: %s", ErrSchemaMismatch, fmt.Sprintf(format, args...))}
}

// Drop reasons reported in CleanStats.DropReasons.
const (
	ReasonMissingNodeAlias    = "missing_node_alias"
	ReasonMissingAlarmTime    = "missing_alarm_time"
	ReasonInvalidAlarmTime    = "invalid_alarm_time"
	ReasonInvalidAvailability = "invalid_availability"
	ReasonInvalidLatency      = "invalid_latency"
	ReasonInvalidPacketLoss   = "invalid_packet_loss"
)

// RowRejected describes a single row excluded during validation. It never
// escapes the cleaner as an error; it is counted and logged.
type RowRejected struct {
	Row    int
	Field  models.Field
	Reason string
	Value  string
}

func (r *RowRejected) Error() string {
	return fmt.Sprintf("row %d rejected: %s (%s=%q)", r.Row, r.Reason, r.Field, r.Value)
}
