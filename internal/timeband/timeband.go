// Package timeband models the three fixed daily duty periods and the
// calendar dates they attach to. All instants are interpreted in one
// fixed timezone; DST is deliberately not handled.
package timeband

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Location is the single timezone every boundary and clock comparison
// uses. IST has no DST transitions, so fixed-offset math is safe.
var Location = time.FixedZone("IST", 5*3600+30*60)

// Now returns the current time in Location.
func Now() time.Time {
	return time.Now().In(Location)
}

// Period is one of the three daily duty bands. The zero value is invalid.
// Ordering follows the clock: Morning < Noon < Evening.
type Period int

const (
	Morning Period = iota + 1
	Noon
	Evening
)

// Periods lists all periods in clock order.
var Periods = [...]Period{Morning, Noon, Evening}

// Wall-clock bounds per period, as seconds since midnight. The ranges are
// contiguous from 06:00:00 through 23:59:59; 00:00:00–05:59:59 belongs to
// no period. That gap is intentional (an administrative dead zone) and
// callers must handle the !ok return from PeriodAt.
var periodBounds = map[Period][2]int{
	Morning: {6 * 3600, 11 * 3600},
	Noon:    {11*3600 + 1, 17 * 3600},
	Evening: {17*3600 + 1, 23*3600 + 59*60 + 59},
}

func (p Period) String() string {
	switch p {
	case Morning:
		return "Morning"
	case Noon:
		return "Noon"
	case Evening:
		return "Evening"
	}
	return fmt.Sprintf("Period(%d)", int(p))
}

// Valid reports whether p is one of the three defined periods.
func (p Period) Valid() bool {
	return p >= Morning && p <= Evening
}

// MarshalText implements encoding.TextMarshaler, so Periods render as
// their names in JSON.
func (p Period) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid time period: %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Value implements driver.Valuer; periods are stored by name.
func (p Period) Value() (driver.Value, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid time period: %d", int(p))
	}
	return p.String(), nil
}

// Scan implements sql.Scanner.
func (p *Period) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return p.UnmarshalText([]byte(v))
	case []byte:
		return p.UnmarshalText(v)
	}
	return fmt.Errorf("cannot scan %T into Period", src)
}

// ParsePeriod converts a period name to a Period.
func ParsePeriod(s string) (Period, error) {
	switch s {
	case "Morning":
		return Morning, nil
	case "Noon":
		return Noon, nil
	case "Evening":
		return Evening, nil
	}
	return 0, fmt.Errorf("invalid time period: %q", s)
}

// PeriodNames returns the period names in clock order, for clients that
// render period pickers.
func PeriodNames() []string {
	return []string{"Morning", "Noon", "Evening"}
}

// PeriodAt returns the period containing t's wall-clock time in Location.
// Times in the 00:00:00–05:59:59 gap return ok=false.
func PeriodAt(t time.Time) (Period, bool) {
	t = t.In(Location)
	sec := t.Hour()*3600 + t.Minute()*60 + t.Second()
	for _, p := range Periods {
		b := periodBounds[p]
		if sec >= b[0] && sec <= b[1] {
			return p, true
		}
	}
	return 0, false
}

// Date is a calendar date in Location, independent of any clock time.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", s, Location)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// DateOf extracts the calendar date of t in Location.
func DateOf(t time.Time) Date {
	t = t.In(Location)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer; dates are stored as YYYY-MM-DD text.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	case time.Time:
		*d = DateOf(v)
		return nil
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Midnight returns 00:00:00 on d in Location.
func (d Date) Midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, Location)
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Midnight().AddDate(0, 0, n))
}

// Weekday returns the day of week in SQL convention: 0=Sunday … 6=Saturday.
func (d Date) Weekday() int {
	return int(d.Midnight().Weekday())
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// Boundary returns the absolute instant of the period's boundary on d:
// the period's first second when isStart is true, its last second
// otherwise.
func Boundary(d Date, p Period, isStart bool) (time.Time, error) {
	b, ok := periodBounds[p]
	if !ok {
		return time.Time{}, fmt.Errorf("invalid time period: %v", p)
	}
	sec := b[1]
	if isStart {
		sec = b[0]
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, sec, 0, Location), nil
}
