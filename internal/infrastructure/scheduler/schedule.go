package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/yogakitties/yogakitties-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// WeeklySchedule fires at a fixed wall-clock time on a set of weekdays.
// Days with no such wall-clock time (DST gap) fire at the normalized time.
type WeeklySchedule struct {
	days     [7]bool
	hour     int
	minute   int
	location *time.Location
}

// NewWeeklySchedule creates a schedule for the given weekdays at hour:minute
// in loc. A nil location means UTC.
func NewWeeklySchedule(days []time.Weekday, hour, minute int, loc *time.Location) (*WeeklySchedule, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("weekly schedule: at least one weekday is required")
	}
	if hour < 0 || hour > 23 {
		return nil, fmt.Errorf("weekly schedule: hour out of range [0-23]: %d", hour)
	}
	if minute < 0 || minute > 59 {
		return nil, fmt.Errorf("weekly schedule: minute out of range [0-59]: %d", minute)
	}
	if loc == nil {
		loc = time.UTC
	}

	ws := &WeeklySchedule{hour: hour, minute: minute, location: loc}
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			return nil, fmt.Errorf("weekly schedule: invalid weekday %d", d)
		}
		ws.days[d] = true
	}
	return ws, nil
}

// ParseWeeklySchedule builds a schedule from a weekday list such as
// "tue,thu,sat" or "mon-fri" and a clock time such as "00:10".
func ParseWeeklySchedule(days, clock string, loc *time.Location) (*WeeklySchedule, error) {
	wds, err := timeutil.ParseWeekdays(days)
	if err != nil {
		return nil, err
	}
	h, m, err := timeutil.ParseClock(clock)
	if err != nil {
		return nil, err
	}
	return NewWeeklySchedule(wds, h, m, loc)
}

// Next returns the first firing time strictly after t.
func (ws *WeeklySchedule) Next(t time.Time) time.Time {
	local := t.In(ws.location)
	y, mo, d := local.Date()

	for i := 0; i <= 7; i++ {
		candidate := time.Date(y, mo, d+i, ws.hour, ws.minute, 0, 0, ws.location)
		if ws.days[candidate.Weekday()] && candidate.After(t) {
			return candidate
		}
	}

	// unreachable for a schedule with at least one day
	return time.Time{}
}

// Days returns the firing weekdays in week order starting from Sunday.
func (ws *WeeklySchedule) Days() []time.Weekday {
	out := make([]time.Weekday, 0, 7)
	for wd, on := range ws.days {
		if on {
			out = append(out, time.Weekday(wd))
		}
	}
	return out
}

// String returns e.g. "tue,thu,sat 00:10 Europe/Moscow".
func (ws *WeeklySchedule) String() string {
	names := make([]string, 0, 7)
	for _, wd := range ws.Days() {
		names = append(names, timeutil.WeekdayAbbrev(wd))
	}
	return fmt.Sprintf("%s %02d:%02d %s", strings.Join(names, ","), ws.hour, ws.minute, ws.location)
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERVAL SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// IntervalSchedule schedules a job to run at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates a new IntervalSchedule.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: interval}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval.String())
}
