// Package week holds the calendar arithmetic of the weekly schedule.
// Weeks start on Monday. Dates are civil dates without a time zone.
package week

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/locales/es_SV"
	"github.com/pkg/errors"
)

const (
	Layout = "2006-01-02"
	Days   = 7

	secondsPerDay = 24 * 60 * 60
)

// DayLabels are the column headers of the week grid, Monday first.
var DayLabels = [Days]string{"LUNES", "MARTES", "MIÉRCOLES", "JUEVES", "VIERNES", "SÁBADO", "DOMINGO"}

var locale = es_SV.New()

// Date is a calendar day, stored as midnight UTC.
type Date struct {
	time.Time
}

// NewDate returns the Date of t as seen in t's location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Parse parses a YYYY-MM-DD date.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, errors.Wrapf(err, "parsing date %q", s)
	}
	return Date{t}, nil
}

// MustParse is Parse for trusted input; it panics on error.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Today returns the current Date in loc.
func Today(now time.Time, loc *time.Location) Date {
	return NewDate(now.In(loc))
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(Layout)
}

func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }

// AddDays returns d moved by n days.
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// Weekday returns the day of week, Monday = 0 ... Sunday = 6.
func (d Date) Weekday() int {
	return (int(d.Time.Weekday()) + 6) % Days
}

// StartOfWeek returns the Monday of the week holding d.
func StartOfWeek(d Date) Date {
	return d.AddDays(-d.Weekday())
}

// DayIndex returns the number of days from monday to d, negative when d comes before monday.
func DayIndex(d, monday Date) int {
	return int((d.Unix() - monday.Unix()) / secondsPerDay)
}

// MonthLabel returns the abbreviated es-SV month name of d, without the trailing dot.
func MonthLabel(d Date) string {
	return strings.TrimSuffix(locale.MonthAbbreviated(d.Month()), ".")
}

// FormatDayMonth formats d as "dd mmm".
func FormatDayMonth(d Date) string {
	return fmt.Sprintf("%02d %s", d.Day(), MonthLabel(d))
}

// FormatHeaderRange returns the "dd mmm – dd mmm" label of the week starting on monday.
func FormatHeaderRange(monday Date) string {
	return FormatDayMonth(monday) + " – " + FormatDayMonth(monday.AddDays(Days-1))
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(Layout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
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

// UnmarshalParam implements echo.BindUnmarshaler for query params.
func (d *Date) UnmarshalParam(param string) error {
	return d.UnmarshalJSON([]byte(param))
}

// Scan implements sql.Scanner for DATE columns.
func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = NewDate(v)
	case []byte:
		return d.UnmarshalJSON(v)
	case string:
		return d.UnmarshalJSON([]byte(v))
	default:
		return errors.Errorf("cannot scan %T into week.Date", value)
	}
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Format(Layout), nil
}
