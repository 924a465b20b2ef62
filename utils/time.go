package utils

import (
	"fmt"
	"time"
)

const (
	dbDateTimeLayout = "2006-01-02 15:04:05"
	dateOnlyLayout   = "2006-01-02"
)

// NowUTC returns the current time in UTC. All server-side date math runs in
// UTC so that expiry verdicts do not depend on the host timezone.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// FormatDateTimeForDB formats a time for DATETIME columns.
func FormatDateTimeForDB(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dbDateTimeLayout)
}

// FormatDateOnly formats a time as YYYY-MM-DD.
func FormatDateOnly(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateOnlyLayout)
}

// ParseUserDate parses incoming user-supplied date/time strings.
func ParseUserDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}

	layouts := []string{
		time.RFC3339,
		dbDateTimeLayout,
		dateOnlyLayout,
	}

	for _, layout := range layouts {
		if layout == time.RFC3339 {
			if ts, err := time.Parse(layout, value); err == nil {
				return ts.UTC(), nil
			}
			continue
		}

		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts, nil
		}
	}

	return time.Time{}, fmt.Errorf("unsupported time format: %s", value)
}

// EndOfDay returns the last representable instant of the given YYYY-MM-DD
// date in UTC. A license expiring on day D stays valid through D 23:59:59.
func EndOfDay(date string) (time.Time, error) {
	ts, err := time.ParseInLocation(dateOnlyLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return ts.Add(24*time.Hour - time.Second), nil
}

// DaysUntil returns the signed number of whole days between now and the start
// of the given date, rounded up. A date 400 days out reports 400 regardless of
// the time of day; past dates report a negative count.
func DaysUntil(date string, now time.Time) (int, error) {
	ts, err := time.ParseInLocation(dateOnlyLayout, date, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", date, err)
	}

	diff := ts.Sub(now.UTC())
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return days, nil
}
