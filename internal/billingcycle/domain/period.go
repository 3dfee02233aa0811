package domain

import (
	"strings"
	"time"
)

const periodLayout = "2006-01"

// ParsePeriod validates a "YYYY-MM" string and returns the first instant of
// that month in UTC.
func ParsePeriod(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != len(periodLayout) {
		return time.Time{}, ErrInvalidPeriod
	}
	start, err := time.Parse(periodLayout, raw)
	if err != nil {
		return time.Time{}, ErrInvalidPeriod
	}
	return start.UTC(), nil
}

func FormatPeriod(t time.Time) string {
	return t.UTC().Format(periodLayout)
}

// PreviousPeriod returns the calendar month before period.
func PreviousPeriod(period string) (string, error) {
	start, err := ParsePeriod(period)
	if err != nil {
		return "", err
	}
	return FormatPeriod(start.AddDate(0, -1, 0)), nil
}

// PeriodLabel renders "2024-03" as "March 2024".
func PeriodLabel(period string) string {
	start, err := ParsePeriod(period)
	if err != nil {
		return period
	}
	return start.Format("January 2006")
}
