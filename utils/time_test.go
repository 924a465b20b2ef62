package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUserDate(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"2030-04-15", "2030-04-15 00:00:00"},
		{"2030-04-15 10:30:00", "2030-04-15 10:30:00"},
		{"2030-04-15T10:30:00Z", "2030-04-15 10:30:00"},
		{"2030-04-15T12:30:00+02:00", "2030-04-15 10:30:00"},
	}

	for _, tc := range cases {
		ts, err := ParseUserDate(tc.input)
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.want, FormatDateTimeForDB(ts), "input %q", tc.input)
	}

	_, err := ParseUserDate("")
	assert.Error(t, err)

	_, err = ParseUserDate("15/04/2030")
	assert.Error(t, err)
}

func TestEndOfDay(t *testing.T) {
	ts, err := EndOfDay("2030-04-15")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2030, 4, 15, 23, 59, 59, 0, time.UTC), ts)

	_, err = EndOfDay("not-a-date")
	assert.Error(t, err)
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2030, 4, 15, 9, 30, 0, 0, time.UTC)

	cases := []struct {
		date string
		want int
	}{
		{"2030-04-15", 0},   // 당일
		{"2030-04-16", 1},   // 내일
		{"2030-04-14", -1},  // 어제
		{"2031-05-20", 400}, // 400일 후
	}

	for _, tc := range cases {
		got, err := DaysUntil(tc.date, now)
		require.NoError(t, err, "date %q", tc.date)
		assert.Equal(t, tc.want, got, "date %q", tc.date)
	}
}

func TestFormatZeroTimes(t *testing.T) {
	assert.Empty(t, FormatDateTimeForDB(time.Time{}))
	assert.Empty(t, FormatDateOnly(time.Time{}))
}
