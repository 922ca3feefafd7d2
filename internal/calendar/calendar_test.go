package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estate/internal/models"
)

func date(t *testing.T, raw string) models.Date {
	t.Helper()
	d, err := models.ParseDate(raw)
	require.NoError(t, err)
	return d
}

func dateStrings(dates []models.Date) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.String())
	}
	return out
}

func TestClampShortMonths(t *testing.T) {
	assert.Equal(t, "2024-02-29", Clamp(2024, time.February, 31).String())
	assert.Equal(t, "2023-02-28", Clamp(2023, time.February, 31).String())
	assert.Equal(t, "2024-04-30", Clamp(2024, time.April, 31).String())
	assert.Equal(t, "2024-01-31", Clamp(2024, time.January, 31).String())
	assert.Equal(t, "2024-06-15", Clamp(2024, time.June, 15).String())
}

func TestAddMonthsClampsDay(t *testing.T) {
	assert.Equal(t, "2024-02-29", AddMonths(date(t, "2024-01-31"), 1).String())
	assert.Equal(t, "2025-01-31", AddMonths(date(t, "2024-12-31"), 1).String())
	assert.Equal(t, "2025-02-28", AddYears(date(t, "2024-02-29"), 1).String())
	assert.Equal(t, "2023-11-30", AddMonths(date(t, "2024-01-30"), -2).String())
}

func TestMonthlyScheduleFullYearDay31(t *testing.T) {
	dates := MonthlySchedule(date(t, "2024-01-01"), date(t, "2024-12-31"), 31)
	assert.Equal(t, []string{
		"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30",
		"2024-05-31", "2024-06-30", "2024-07-31", "2024-08-31",
		"2024-09-30", "2024-10-31", "2024-11-30", "2024-12-31",
	}, dateStrings(dates))
}

func TestMonthlyScheduleSkipsDueDatesBeforeStart(t *testing.T) {
	dates := MonthlySchedule(date(t, "2024-03-20"), date(t, "2024-06-10"), 15)
	assert.Equal(t, []string{"2024-04-15", "2024-05-15"}, dateStrings(dates))
}

func TestMonthlyScheduleCrossesYear(t *testing.T) {
	dates := MonthlySchedule(date(t, "2024-11-01"), date(t, "2025-02-28"), 30)
	assert.Equal(t, []string{"2024-11-30", "2024-12-30", "2025-01-30", "2025-02-28"}, dateStrings(dates))
}

func TestMonthlyScheduleEmptyWindow(t *testing.T) {
	assert.Empty(t, MonthlySchedule(date(t, "2024-05-01"), date(t, "2024-04-01"), 1))
	assert.Empty(t, MonthlySchedule(date(t, "2024-05-02"), date(t, "2024-05-20"), 1))
}

func TestWithin(t *testing.T) {
	from, to := date(t, "2024-01-31"), date(t, "2024-03-01")
	assert.True(t, Within(from, from, to))
	assert.True(t, Within(to, from, to))
	assert.True(t, Within(date(t, "2024-02-29"), from, to))
	assert.False(t, Within(date(t, "2024-03-02"), from, to))
}

func TestClockToday(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	fixed := time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC)
	clock := NewClock(paris, func() time.Time { return fixed })
	assert.Equal(t, "2025-01-01", clock.Today().String())
	assert.Equal(t, "2024-12-31", NewClock(nil, func() time.Time { return fixed }).Today().String())
}
