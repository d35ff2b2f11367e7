// Package timeparse parses the timestamp spellings found in MES exports.
package timeparse

import (
	"strconv"
	"strings"
	"time"
)

// Order is the field order of slash/dash dates such as 03/04/2024.
type Order int

const (
	DayFirst Order = iota
	MonthFirst
)

func (o Order) String() string {
	if o == MonthFirst {
		return "MDY"
	}
	return "DMY"
}

var dayFirstLayouts = []string{
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02-01-2006",
	"02/01/2006",
	"2-1-2006",
	"2/1/2006",
	"02.01.2006",
}

var monthFirstLayouts = []string{
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04",
	"01-02-2006 15:04:05",
	"01-02-2006 15:04",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
}

var fixedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	time.RFC1123,
	time.RFC1123Z,
}

// Parser tolerantly parses timestamps. Values without a zone are read in
// Location (UTC when nil).
type Parser struct {
	Order    Order
	Location *time.Location
}

// Parse returns the instant s denotes, or false.
func (p Parser) Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}

	if len(s) >= 10 && s[4] == '-' && s[7] == '-' {
		if t, ok := parseISO8601(s, loc); ok {
			return t, true
		}
	}

	if t, ok := parseExcelSerial(s, loc); ok {
		return t, true
	}

	layouts := dayFirstLayouts
	if p.Order == MonthFirst {
		layouts = monthFirstLayouts
	}
	for _, group := range [][]string{fixedLayouts, layouts} {
		for _, layout := range group {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// parseISO8601 handles YYYY-MM-DD[(T| )hh:mm[:ss[.frac]]][Z|±hh[:]mm]
// without going through the layout table.
func parseISO8601(b string, loc *time.Location) (time.Time, bool) {
	year, ok1 := digits(b[0:4])
	month, ok2 := digits(b[5:7])
	day, ok3 := digits(b[8:10])
	if !ok1 || !ok2 || !ok3 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	if len(b) == 10 {
		return calendarDate(year, month, day, 0, 0, 0, 0, loc)
	}
	if b[10] != 'T' && b[10] != ' ' || len(b) < 16 || b[13] != ':' {
		return time.Time{}, false
	}

	hour, ok1 := digits(b[11:13])
	minute, ok2 := digits(b[14:16])
	if !ok1 || !ok2 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	i := 16
	second, nsec := 0, 0
	if i < len(b) && b[i] == ':' {
		if len(b) < 19 {
			return time.Time{}, false
		}
		var ok bool
		if second, ok = digits(b[17:19]); !ok || second > 59 {
			return time.Time{}, false
		}
		i = 19
		if i < len(b) && (b[i] == '.' || b[i] == ',') {
			end := i + 1
			for end < len(b) && b[end] >= '0' && b[end] <= '9' {
				end++
			}
			nsec = fraction(b[i+1 : end])
			i = end
		}
	}

	rest := strings.TrimSpace(b[i:])
	switch {
	case rest == "":
	case rest == "Z" || rest == "UTC":
		loc = time.UTC
	case rest[0] == '+' || rest[0] == '-':
		off, ok := zoneOffset(rest[1:])
		if !ok {
			return time.Time{}, false
		}
		if rest[0] == '-' {
			off = -off
		}
		loc = time.FixedZone("", off)
	default:
		return time.Time{}, false
	}

	return calendarDate(year, month, day, hour, minute, second, nsec, loc)
}

// calendarDate builds the instant, rejecting days past the end of the month
// (2024-02-31) that time.Date would roll into the next month.
func calendarDate(year, month, day, hour, minute, second, nsec int, loc *time.Location) (time.Time, bool) {
	t := time.Date(year, time.Month(month), day, hour, minute, second, nsec, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// zoneOffset parses hh, hhmm or hh:mm into seconds.
func zoneOffset(s string) (int, bool) {
	s = strings.Replace(s, ":", "", 1)
	if len(s) != 2 && len(s) != 4 {
		return 0, false
	}
	h, ok := digits(s[:2])
	if !ok {
		return 0, false
	}
	m := 0
	if len(s) == 4 {
		if m, ok = digits(s[2:]); !ok {
			return 0, false
		}
	}
	return h*3600 + m*60, true
}

// Excel serial dates count days from 1899-12-30. Values outside
// 1900..9999 are treated as not-a-date.
const (
	excelMin = 1
	excelMax = 2958465
)

func parseExcelSerial(s string, loc *time.Location) (time.Time, bool) {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || v < excelMin || v > excelMax {
		return time.Time{}, false
	}
	days := int(v)
	frac := v - float64(days)
	t := time.Date(1899, 12, 30, 0, 0, 0, 0, loc).AddDate(0, 0, days)
	// Round to the millisecond; serials carry float noise.
	return t.Add(time.Duration(frac*86400*1e3+0.5) * time.Millisecond), true
}

func digits(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, len(s) > 0
}

// fraction converts fractional-second digits to nanoseconds.
func fraction(b string) int {
	result := 0
	mult := 100000000
	for i := 0; i < len(b) && i < 9; i++ {
		result += int(b[i]-'0') * mult
		mult /= 10
	}
	return result
}

// DetectOrder inspects sample values and decides whether slash/dash dates
// are day-first or month-first. A leading field above 12 can only be a day;
// a second field above 12 can only be a day as well, making the first one
// the month. Without evidence the result is DayFirst.
func DetectOrder(samples []string) Order {
	dayFirst, monthFirst := 0, 0
	for _, s := range samples {
		parts := dateParts(strings.TrimSpace(s))
		if len(parts) < 3 || len(parts[0]) == 4 {
			continue
		}
		first, ok1 := digits(parts[0])
		second, ok2 := digits(parts[1])
		if !ok1 || !ok2 {
			continue
		}
		if first > 12 {
			dayFirst++
		}
		if second > 12 {
			monthFirst++
		}
	}
	if monthFirst > dayFirst {
		return MonthFirst
	}
	return DayFirst
}

// dateParts splits the date portion of s on '/', '-' and '.'.
func dateParts(s string) []string {
	if i := strings.IndexAny(s, " T"); i >= 0 {
		s = s[:i]
	}
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '-' || r == '.'
	})
}
