package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekdays(t *testing.T) {
	days, err := ParseWeekdays("mon-wed,6")
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Saturday}, days)

	days, err = ParseWeekdays("fri-mon")
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Sunday, time.Monday, time.Friday, time.Saturday}, days)

	for _, bad := range []string{"", ",", "funday", "7", "mo"} {
		_, err := ParseWeekdays(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("18:40")
	require.NoError(t, err)
	assert.Equal(t, 18, h)
	assert.Equal(t, 40, m)

	for _, bad := range []string{"24:00", "7pm", "12:60", ""} {
		_, _, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestWeekdayAbbrev(t *testing.T) {
	assert.Equal(t, "sat", WeekdayAbbrev(time.Saturday))
	assert.Equal(t, "", WeekdayAbbrev(time.Weekday(-1)))
}
