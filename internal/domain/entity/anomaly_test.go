package entity

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
)

func TestWeekWindow_StartsOnMonday(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	// четверг, 9 мая 2024, 01:00 UTC = 08:00 в Джакарте
	now := time.Date(2024, 5, 9, 1, 0, 0, 0, time.UTC)
	start, end := WeekWindow(now, loc)

	require.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, loc), start)
	require.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, loc), end)
}

func TestWeekWindow_Sunday(t *testing.T) {
	now := time.Date(2024, 5, 12, 23, 0, 0, 0, time.UTC)
	start, _ := WeekWindow(now, time.UTC)
	require.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), start)
}
