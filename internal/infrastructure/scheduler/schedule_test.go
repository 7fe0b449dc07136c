package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	return loc
}

func TestWeeklySchedule_Next(t *testing.T) {
	loc := time.FixedZone("MSK", 3*3600)
	ws, err := ParseWeeklySchedule("tue,thu,sat", "00:10", loc)
	require.NoError(t, err)

	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{
			name: "monday evening fires tuesday",
			from: time.Date(2026, time.October, 19, 20, 0, 0, 0, loc),
			want: time.Date(2026, time.October, 20, 0, 10, 0, 0, loc),
		},
		{
			name: "exactly at fire time moves to next day",
			from: time.Date(2026, time.October, 20, 0, 10, 0, 0, loc),
			want: time.Date(2026, time.October, 22, 0, 10, 0, 0, loc),
		},
		{
			name: "saturday after fire wraps to tuesday",
			from: time.Date(2026, time.October, 24, 1, 0, 0, 0, loc),
			want: time.Date(2026, time.October, 27, 0, 10, 0, 0, loc),
		},
		{
			name: "input in another zone",
			from: time.Date(2026, time.October, 19, 21, 15, 0, 0, time.UTC),
			want: time.Date(2026, time.October, 22, 0, 10, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ws.Next(tt.from)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestWeeklySchedule_DSTKeepsWallClock(t *testing.T) {
	loc := mustLoad(t, "Europe/Berlin")
	ws, err := NewWeeklySchedule([]time.Weekday{time.Sunday, time.Monday}, 9, 0, loc)
	require.NoError(t, err)

	// DST ends on 2026-10-25 in Berlin.
	from := time.Date(2026, time.October, 25, 9, 30, 0, 0, loc)
	got := ws.Next(from)

	assert.Equal(t, 26, got.Day())
	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 0, got.Minute())
}

func TestWeeklySchedule_String(t *testing.T) {
	ws, err := ParseWeeklySchedule("sat, tue ,thursday", "0:10", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "tue,thu,sat 00:10 UTC", ws.String())
}

func TestNewWeeklySchedule_Validation(t *testing.T) {
	_, err := NewWeeklySchedule(nil, 0, 0, nil)
	assert.Error(t, err)
	_, err = NewWeeklySchedule([]time.Weekday{time.Monday}, 25, 0, nil)
	assert.Error(t, err)
	_, err = NewWeeklySchedule([]time.Weekday{time.Weekday(9)}, 1, 0, nil)
	assert.Error(t, err)
}
