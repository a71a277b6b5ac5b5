package reader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tsawler/pdfgraph/core"
)

// dateRegexp matches D:YYYYMMDDHHmmSSOHH'mm'. Everything after the year is
// optional; the D: prefix is tolerated when missing.
var dateRegexp = regexp.MustCompile(`^(?:D:)?(\d{4})(\d{2})?(\d{2})?(\d{2})?(\d{2})?(\d{2})?(?:([Zz+\-])(?:(\d{2})(?:'?(\d{2}))?'?)?)?$`)

// Date is a string holding a PDF date.
type Date struct {
	*String
	Time time.Time
}

// NewDate parses s as a PDF date.
func NewDate(s *String) (*Date, error) {
	t, err := ParseDate(s.Bytes(), s.raw.Position)
	if err != nil {
		return nil, err
	}
	return &Date{String: s, Time: t}, nil
}

// ParseDate parses a PDF date string. offset is reported in the
// *core.FormatError returned for malformed input.
func ParseDate(b []byte, offset int64) (time.Time, error) {
	text := strings.TrimRight(string(b), " \x00")
	m := dateRegexp.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, dateError(offset, text)
	}

	field := func(i, def, min, max int) (int, bool) {
		if m[i] == "" {
			return def, true
		}
		v, _ := strconv.Atoi(m[i])
		return v, v >= min && v <= max
	}

	year, _ := strconv.Atoi(m[1])
	month, ok1 := field(2, 1, 1, 12)
	day, ok2 := field(3, 1, 1, 31)
	hour, ok3 := field(4, 0, 0, 23)
	minute, ok4 := field(5, 0, 0, 59)
	second, ok5 := field(6, 0, 0, 59)
	tzHour, ok6 := field(8, 0, 0, 23)
	tzMinute, ok7 := field(9, 0, 0, 59)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7) {
		return time.Time{}, dateError(offset, text)
	}

	loc := time.UTC
	if sign := m[7]; sign == "+" || sign == "-" {
		secs := tzHour*3600 + tzMinute*60
		if sign == "-" {
			secs = -secs
		}
		loc = time.FixedZone("", secs)
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	if t.Day() != day {
		// day beyond the end of the month
		return time.Time{}, dateError(offset, text)
	}
	return t, nil
}

func dateError(offset int64, text string) error {
	return &core.FormatError{
		Offset:   offset,
		Expected: "date D:YYYYMMDDHHmmSSOHH'mm'",
		Found:    fmt.Sprintf("%q", text),
	}
}
