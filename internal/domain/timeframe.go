package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

var daysPerYear = decimal.NewFromInt(365)

// CivilDay truncates t to midnight UTC of its calendar date.
func CivilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TimeFrame bounds a balance computation. Both ends are inclusive.
type TimeFrame struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls on a day within the time frame.
func (tf TimeFrame) Contains(t time.Time) bool {
	d := CivilDay(t)
	return !d.Before(CivilDay(tf.Start)) && !d.After(CivilDay(tf.End))
}

// Days returns the inclusive number of calendar days in the time frame. It is
// zero or negative when End lies before Start.
func (tf TimeFrame) Days() int {
	return int(CivilDay(tf.End).Sub(CivilDay(tf.Start))/day) + 1
}

// YearFraction scales annual rates to the time frame: Days / 365, or zero for
// an empty time frame.
func (tf TimeFrame) YearFraction() decimal.Decimal {
	days := tf.Days()
	if days <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(days)).Div(daysPerYear)
}

// Within narrows the time frame to the optional [start, end] bounds.
func (tf TimeFrame) Within(start, end *time.Time) TimeFrame {
	out := tf
	if start != nil && start.After(out.Start) {
		out.Start = *start
	}
	if end != nil && end.Before(out.End) {
		out.End = *end
	}
	return out
}
