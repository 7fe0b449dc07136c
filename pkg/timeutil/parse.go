package timeutil

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

var weekdayAbbrev = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// ParseWeekdays parses a comma-separated list of weekday names or ranges.
// Accepts three-letter or full English names and 0-6 with Sunday as 0.
func ParseWeekdays(s string) ([]time.Weekday, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return nil, fmt.Errorf("empty weekday list")
	}

	var set [7]bool
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		// Handle ranges (mon-fri)
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := parseWeekday(lo)
			if err != nil {
				return nil, err
			}
			end, err := parseWeekday(hi)
			if err != nil {
				return nil, err
			}
			for wd := start; ; wd = (wd + 1) % 7 {
				set[wd] = true
				if wd == end {
					break
				}
			}
			continue
		}

		wd, err := parseWeekday(part)
		if err != nil {
			return nil, err
		}
		set[wd] = true
	}

	days := make([]time.Weekday, 0, 7)
	for wd, on := range set {
		if on {
			days = append(days, time.Weekday(wd))
		}
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("empty weekday list")
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("weekday out of range [0-6]: %d", n)
		}
		return time.Weekday(n), nil
	}
	if len(s) >= 3 {
		for wd, abbrev := range weekdayAbbrev {
			if s[:3] == abbrev && strings.HasPrefix(strings.ToLower(time.Weekday(wd).String()), s) {
				return time.Weekday(wd), nil
			}
		}
	}
	return 0, fmt.Errorf("invalid weekday: %q", s)
}

// ParseClock parses "HH:MM" in 24-hour format.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}


// WeekdayAbbrev returns the lowercase three-letter English abbreviation.
func WeekdayAbbrev(wd time.Weekday) string {
	if wd < time.Sunday || wd > time.Saturday {
		return ""
	}
	return weekdayAbbrev[wd]
}
