package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateFormat is the ISO-8601 layout used for all persisted dates.
const DateFormat = "2006-01-02"

// Date is a calendar day with no time-of-day component. Installment due
// dates are day-granular: reading a persisted date in a different timezone
// must never shift the displayed day, so Date keeps only year/month/day and
// canonicalizes through midnight UTC.
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Date())
}

// ParseDate parses an ISO-8601 date. Full timestamps are accepted too; only
// the written calendar day is kept, the time-of-day and offset are dropped.
func ParseDate(str string) (Date, error) {
	if t, err := time.Parse(DateFormat, str); err == nil {
		return NewDate(t.Date()), nil
	}
	if t, err := time.Parse(time.RFC3339, str); err == nil {
		return NewDate(t.Date()), nil
	}
	return Date{}, fmt.Errorf("invalid date %q, want format %q", str, DateFormat)
}

func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

// Before reports whether d falls before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// AddDays returns the date i days after d.
func (d Date) AddDays(i int) Date { return NewDate(d.y, d.m, d.d+i) }

func (d Date) String() string { return d.time().Format(DateFormat) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseDate(str)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var _ json.Marshaler = (*Date)(nil)
var _ json.Unmarshaler = (*Date)(nil)
