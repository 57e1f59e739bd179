package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSeries struct {
	series map[int]int64
}

func (s *stubSeries) MonthlySeries(ctx context.Context, postID uint, year, month int) (map[int]int64, error) {
	return s.series, nil
}

func newTestChartService(series map[int]int64, now time.Time) *ChartService {
	s := NewChartService(&stubSeries{series: series})
	s.now = func() time.Time { return now }
	return s
}

func TestBuildMonthCurrentPeriod(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	s := newTestChartService(map[int]int64{1: 5, 15: 10}, now)

	data, err := s.BuildMonth(context.Background(), 7, "Hello World", "")
	require.NoError(t, err)

	assert.Equal(t, "202406", data.Period)
	assert.Len(t, data.Views, 30)
	assert.Equal(t, int64(5), data.Views[0])
	assert.Equal(t, int64(10), data.Views[14])
	assert.Equal(t, int64(0), data.Views[1])
	assert.Equal(t, int64(15), data.TotalViews)
	assert.True(t, data.PeriodHasData)
}

func TestBuildMonthLabelsShowOddDaysOnly(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	s := newTestChartService(nil, now)

	data, err := s.BuildMonth(context.Background(), 7, "Hello World", "202406")
	require.NoError(t, err)

	assert.Equal(t, "1", data.Labels[0])
	assert.Equal(t, "", data.Labels[1])
	assert.Equal(t, "15", data.Labels[14])
}

func TestBuildMonthNavigation(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	s := newTestChartService(nil, now)

	// current month: next would exceed the current date
	data, err := s.BuildMonth(context.Background(), 7, "Hello World", "202406")
	require.NoError(t, err)
	assert.Equal(t, "202405", data.Nav.Prev)
	assert.Equal(t, "202407", data.Nav.Next)
	assert.False(t, data.Nav.NextEnabled)

	// past month: navigation forward stays available
	data, err = s.BuildMonth(context.Background(), 7, "Hello World", "202312")
	require.NoError(t, err)
	assert.Equal(t, "202311", data.Nav.Prev)
	assert.Equal(t, "202401", data.Nav.Next)
	assert.True(t, data.Nav.NextEnabled)
}

func TestBuildMonthInvalidPeriodFallsBack(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	s := newTestChartService(nil, now)

	for _, period := range []string{"garbage", "2024", "202413", "20240x"} {
		data, err := s.BuildMonth(context.Background(), 7, "Hello World", period)
		require.NoError(t, err)
		assert.Equal(t, "202406", data.Period, "period %q must fall back to the current month", period)
	}
}

func TestBuildMonthEmptySeries(t *testing.T) {
	now := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	s := newTestChartService(nil, now)

	data, err := s.BuildMonth(context.Background(), 7, "Hello World", "")
	require.NoError(t, err)

	assert.Len(t, data.Views, 29) // 2024 is a leap year
	assert.Equal(t, int64(0), data.TotalViews)
	assert.False(t, data.PeriodHasData)
}

func TestPeriodFormatting(t *testing.T) {
	ts := time.Date(2024, 6, 3, 8, 30, 0, 0, time.UTC)

	assert.Equal(t, "202406", MonthPeriod(ts))
	assert.Equal(t, "20240603", DayPeriod(ts))
	assert.Equal(t, "202423", WeekPeriod(ts))
}
