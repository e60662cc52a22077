package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/xuri/excelize/v2"
)

// Serial 2958465 is 9999-12-31, the last date Excel can represent.
const maxExcelSerial = 2958465

// Layouts tried after dateparse. Month-first forms come before their
// day-first twins so ambiguous dates read month first.
var timestampLayouts = []string{
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"1-2-2006 15:04:05",
	"1-2-2006 15:04",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006",
	"2-Jan-2006 15:04:05",
	"2-Jan-2006 15:04",
	"2-Jan-2006 3:04:05 PM",
	"2-Jan-2006 3:04 PM",
	"2-Jan-2006",
	"2 Jan 2006 15:04:05",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
	"Jan 2, 2006 3:04:05 PM",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
}

// ParseTimestamp coerces a cell to a UTC timestamp. Numbers are Excel serial
// dates, except a bare four digit value which is a year. Text goes through
// dateparse (month first, swapping to day first when that fails) and then the
// layouts above; anything else reports false.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if isYear(value) {
		year, _ := strconv.Atoi(value)
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	if serial, ok := ParseNumber(value); ok {
		if serial <= 0 || serial > maxExcelSerial {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		// Serial fractions carry float noise well below a millisecond.
		return t.UTC().Round(time.Millisecond), true
	}

	if t, err := dateparse.ParseIn(value, time.UTC,
		dateparse.PreferMonthFirst(true),
		dateparse.RetryAmbiguousDateWithSwap(true),
	); err == nil {
		return t.UTC(), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func isYear(value string) bool {
	if len(value) != 4 || value[0] == '0' {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseNumber coerces a cell to a finite float. A trailing percent sign is
// allowed; thousands separators, Go literal forms such as "1_0" or "0x10" and
// placeholders such as "N/A" are not.
func ParseNumber(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	value = strings.TrimSpace(strings.TrimSuffix(value, "%"))
	if value == "" || strings.ContainsAny(value, "_xX") {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
