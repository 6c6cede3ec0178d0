// Package duedate models task due dates as calendar days and classifies them
// relative to the current time.
package duedate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const layout = "2006-01-02"

// Date is a calendar day without a time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func New(year int, month time.Month, day int) Date {
	return Of(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Of returns the calendar day of t in t's own location.
func Of(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Parse accepts "2006-01-02" or an RFC 3339 timestamp (the date part is kept).
func Parse(s string) (Date, error) {
	if t, err := time.Parse(layout, s); err == nil {
		return Of(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid due date %q: expected YYYY-MM-DD", s)
	}
	return Of(t), nil
}

// IsZero reports whether d is the zero Date, which stands for "no due date".
func (d Date) IsZero() bool {
	return d == Date{}
}

// OrNil returns nil for a nil or zero date and d otherwise.
func OrNil(d *Date) *Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// In returns midnight at the start of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// EndOfDay returns the last nanosecond of d in loc.
func (d Date) EndOfDay(loc *time.Location) time.Time {
	return d.In(loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DaysUntil counts calendar days from a to d (negative when d is earlier).
func (d Date) DaysUntil(a Date) int {
	from := a.In(time.UTC)
	to := d.In(time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes "" as the zero Date; a cleared date field is
// written as an empty string.
func (d *Date) UnmarshalText(b []byte) error {
	if len(bytes.TrimSpace(b)) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid due date: %w", err)
	}
	return d.UnmarshalText([]byte(s))
}

func (d Date) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("invalid due date: %w", err)
	}
	return d.UnmarshalText([]byte(s))
}

// Format renders d the way the board shows it, e.g. "2025年3月9日".
func Format(d *Date) string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("%d年%d月%d日", d.Year, int(d.Month), d.Day)
}
