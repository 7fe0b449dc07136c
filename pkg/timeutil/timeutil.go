// Package timeutil provides timezone and Russian date formatting helpers.
// The studio works in a single configured timezone; every helper takes the
// location explicitly instead of relying on the process local time.
package timeutil

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// DefaultTimezone is used when no timezone is configured.
const DefaultTimezone = "Europe/Moscow"

// LoadLocation resolves an IANA timezone name. An empty name resolves to
// DefaultTimezone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeutil: unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// FormatClassDay formats a date the way it is announced in the chat,
// e.g. "понедельник, 20 октября 2026". The date is taken as-is.
func FormatClassDay(t time.Time) string {
	return fmt.Sprintf("%s, %02d %s %d", WeekdayNameRu(t.Weekday()), t.Day(), MonthGenitiveRu(t.Month()), t.Year())
}

var weekdaysRu = [7]string{
	"воскресенье", "понедельник", "вторник", "среда", "четверг", "пятница", "суббота",
}

// WeekdayNameRu returns the lowercase Russian name for a weekday.
func WeekdayNameRu(wd time.Weekday) string {
	if wd < time.Sunday || wd > time.Saturday {
		return ""
	}
	return weekdaysRu[wd]
}

// MonthGenitiveRu returns the month name as used after a day number
// ("20 октября").
func MonthGenitiveRu(m time.Month) string {
	names := []string{
		"", "января", "февраля", "марта", "апреля", "мая", "июня",
		"июля", "августа", "сентября", "октября", "ноября", "декабря",
	}
	if int(m) >= 1 && int(m) <= 12 {
		return names[m]
	}
	return ""
}
