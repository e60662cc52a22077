package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{"iso minutes", "2024-01-01 10:00", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"iso seconds", "2024-01-01 10:00:30", time.Date(2024, 1, 1, 10, 0, 30, 0, time.UTC), true},
		{"rfc3339", "2024-01-01T10:00:00Z", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"date only", "2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"month first slash", "03/05/2024 08:15", time.Date(2024, 3, 5, 8, 15, 0, 0, time.UTC), true},
		{"day first fallback", "25/05/2024 08:15", time.Date(2024, 5, 25, 8, 15, 0, 0, time.UTC), true},
		{"dashed day first fallback", "25-05-2024 08:15:00", time.Date(2024, 5, 25, 8, 15, 0, 0, time.UTC), true},
		{"month name", "05-Mar-2024 08:15", time.Date(2024, 3, 5, 8, 15, 0, 0, time.UTC), true},
		{"excel serial", "45292.416666666664", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"padded", "  2024-01-01 10:00  ", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"unpadded slash", "1/5/2024 10:00", time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), true},
		{"unpadded slash single digit hour", "1/5/2024 9:05:00", time.Date(2024, 1, 5, 9, 5, 0, 0, time.UTC), true},
		{"unpadded iso", "2024-1-5 10:00:00", time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), true},
		{"month name twelve hour", "Jan 5, 2024 10:00:00 AM", time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), true},
		{"dashed month name twelve hour", "05-Jan-2024 10:00:00 AM", time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), true},
		{"day month name", "5 Jan 2024 10:00", time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), true},
		{"afternoon", "1/5/2024 3:30 PM", time.Date(2024, 1, 5, 15, 30, 0, 0, time.UTC), true},
		{"bare year", "2024", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"empty", "", time.Time{}, false},
		{"text", "not a date", time.Time{}, false},
		{"negative serial", "-3", time.Time{}, false},
		{"serial out of range", "99999999", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"99.5", 99.5, true},
		{" 12 ", 12, true},
		{"0", 0, true},
		{"97.25%", 97.25, true},
		{"1e2", 100, true},
		{"N/A", 0, false},
		{"", 0, false},
		{"-", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"1,234.5", 0, false},
		{"0x1p-2", 0, false},
		{"0X10", 0, false},
		{"1_0", 0, false},
		{"-2.5", -2.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseNumber(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
