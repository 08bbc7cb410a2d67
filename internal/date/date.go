// Package date provides calendar values with day granularity.
//
// A Date carries no clock and no location: it is built from the year, month and day
// components of whatever time it comes from, so two instants that fall on the same
// calendar day always produce equal Dates regardless of their time-of-day or offset.
package date

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const readFormat = "2006-1-2" // lenient, accepts 2025-7-1

// Format is the ISO-8601 layout used to write dates.
const Format = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// Date is a calendar day. The zero value means "no date".
type Date struct {
	y int
	m time.Month
	d int
}

// New returns a normalized Date (2025-01-32 becomes 2025-02-01).
func New(year int, month time.Month, day int) Date {
	y, m, d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Date()
	return Date{y, m, d}
}

// Of returns the calendar day of t as seen in t's own location.
func Of(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return New(t.Date())
}

// Today returns the current date in loc. A nil loc means local time.
func Today(loc *time.Location) Date {
	now := time.Now()
	if loc != nil {
		now = now.In(loc)
	}
	return Of(now)
}

// Parse reads a date such as 2025-07-01 or 2025-7-1. Timestamps in RFC 3339 form are
// accepted too and reduced to their own calendar day.
func Parse(s string) (Date, error) {
	if t, err := time.Parse(readFormat, s); err == nil {
		return Of(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Of(t), nil
	}
	return Date{}, fmt.Errorf("invalid date %q want format %q", s, Format)
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err.Error())
	}
	return d
}

func (d Date) IsZero() bool          { return d.y == 0 && d.m == 0 && d.d == 0 }
func (d Date) Year() int             { return d.y }
func (d Date) Month() time.Month     { return d.m }
func (d Date) Day() int              { return d.d }
func (d Date) YearMonth() YearMonth  { return YearMonth{Year: d.y, Month: d.m} }

// Time returns midnight UTC of that day.
func (d Date) Time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

func (d Date) Before(x Date) bool { return d.Time().Before(x.Time()) }
func (d Date) After(x Date) bool  { return d.Time().After(x.Time()) }
func (d Date) Equal(x Date) bool  { return d == x }

// Compare returns -1, 0 or +1.
func (d Date) Compare(x Date) int { return d.Time().Compare(x.Time()) }

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date { return New(d.y, d.m, d.d+n) }

// AddMonths returns d shifted by n months. The day is clamped to the last day of the
// target month, so 2025-01-31 plus one month is 2025-02-28.
func (d Date) AddMonths(n int) Date {
	first := New(d.y, d.m+time.Month(n), 1)
	last := first.EndOfMonth()
	if d.d > last.d {
		return last
	}
	return New(first.y, first.m, d.d)
}

func (d Date) FirstOfMonth() Date { return New(d.y, d.m, 1) }

// EndOfMonth returns the last day of d's month.
func (d Date) EndOfMonth() Date { return New(d.y, d.m+1, 0) }

// EndOfYear returns December 31st of d's year.
func (d Date) EndOfYear() Date { return New(d.y, time.December, 31) }

// DaysBetween returns the number of calendar days from a to b (b − a).
func DaysBetween(a, b Date) int {
	return int((b.Time().Unix() - a.Time().Unix()) / secondsPerDay)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(Format)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the zero Date as NULL.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time(), nil
}

// Scan reads DATE/TIMESTAMP columns as well as textual dates.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = Of(v)
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into date.Date", src)
	}
	return nil
}

func (d *Date) scanString(s string) error {
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var (
	_ json.Marshaler   = Date{}
	_ json.Unmarshaler = (*Date)(nil)
	_ driver.Valuer    = Date{}
)
