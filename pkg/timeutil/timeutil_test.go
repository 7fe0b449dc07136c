package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatClassDay(t *testing.T) {
	d := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "понедельник, 19 октября 2026", FormatClassDay(d))

	d = time.Date(2027, time.March, 7, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "воскресенье, 07 марта 2027", FormatClassDay(d))
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("MSK", 3*3600)
	// 22:30 UTC is already the next day in MSK.
	ts := time.Date(2026, time.October, 19, 22, 30, 0, 0, time.UTC)

	got := StartOfDay(ts, loc)
	assert.Equal(t, 20, got.Day())
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, loc, got.Location())
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = LoadLocation("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "среда", WeekdayNameRu(time.Wednesday))
	assert.Equal(t, "", WeekdayNameRu(time.Weekday(8)))
	assert.Equal(t, "мая", MonthGenitiveRu(time.May))
	assert.Equal(t, "", MonthGenitiveRu(time.Month(13)))
}
