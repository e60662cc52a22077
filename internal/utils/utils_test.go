package utils

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateBound(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		endOfDay bool
		want     time.Time
	}{
		{"empty", "", false, time.Time{}},
		{"date start", "2024-01-05", false, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"date end", "2024-01-05", true, time.Date(2024, 1, 5, 23, 59, 59, 999999999, time.UTC)},
		{"rfc3339 kept", "2024-01-05T10:00:00+02:00", true, time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateBound(tt.value, tt.endOfDay)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}

	_, err := ParseDateBound("05/01/2024", false)
	assert.Error(t, err)
}

func TestFormatTime(t *testing.T) {
	assert.Empty(t, FormatTime(time.Time{}))
	assert.Equal(t, "2024-01-05T08:00:00Z", FormatTime(time.Date(2024, 1, 5, 10, 0, 0, 0, time.FixedZone("", 7200))))
}

func TestAppErrorKind(t *testing.T) {
	base := errors.New("bucket \"x\"")
	err := NewAppError("report", KindInvalidArgument, "bad query", base)

	assert.ErrorIs(t, err, base)
	assert.Equal(t, KindInvalidArgument, KindOf(err))
	assert.Equal(t, "report: bad query: bucket \"x\"", err.Error())
	assert.Equal(t, "bad query: bucket \"x\"", Message(err))

	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Equal(t, "unavailable", KindUnavailable.String())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", true)

	logger.Info("hidden")
	logger.Warn("shown", slog.String("source", "event_log"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"source":"event_log"`)
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
