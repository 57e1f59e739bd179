package services

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// MonthSeriesQuerier provides the day-by-day counts the chart is built from
type MonthSeriesQuerier interface {
	MonthlySeries(ctx context.Context, postID uint, year, month int) (map[int]int64, error)
}

// ChartNav carries month navigation metadata for the chart modal
type ChartNav struct {
	Prev        string `json:"prev"`
	Current     string `json:"current"`
	CurrentName string `json:"current_name"`
	Next        string `json:"next"`
	NextEnabled bool   `json:"next_enabled"`
}

// ChartData is the day-by-day series payload for one calendar month
type ChartData struct {
	PostID        uint     `json:"post_id"`
	PostTitle     string   `json:"post_title"`
	Period        string   `json:"period"`
	Labels        []string `json:"labels"`
	Dates         []string `json:"dates"`
	Views         []int64  `json:"views"`
	TotalViews    int64    `json:"total_views"`
	PeriodHasData bool     `json:"period_has_data"`
	Nav           ChartNav `json:"nav"`
}

// ChartService assembles monthly view series for the admin chart modal
type ChartService struct {
	views MonthSeriesQuerier
	now   func() time.Time
}

// NewChartService creates a new chart service
func NewChartService(views MonthSeriesQuerier) *ChartService {
	return &ChartService{
		views: views,
		now:   time.Now,
	}
}

// parseChartPeriod resolves an optional YYYYMM string; anything else falls
// back to the current month
func (s *ChartService) parseChartPeriod(period string) time.Time {
	now := s.now()

	if len(period) != 6 {
		return now
	}

	year, err := strconv.Atoi(period[:4])
	if err != nil {
		return now
	}
	month, err := strconv.Atoi(period[4:])
	if err != nil || month < 1 || month > 12 {
		return now
	}

	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, now.Location())
}

// BuildMonth produces the full chart payload for a post and month. Days
// without recorded views are zero-filled; next-month navigation is disabled
// once it would exceed the current date.
func (s *ChartService) BuildMonth(ctx context.Context, postID uint, postTitle, period string) (*ChartData, error) {
	date := s.parseChartPeriod(period)
	year, month := date.Year(), int(date.Month())

	series, err := s.views.MonthlySeries(ctx, postID, year, month)
	if err != nil {
		return nil, err
	}

	firstOfMonth := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, date.Location())
	lastDay := firstOfMonth.AddDate(0, 1, -1).Day()

	data := &ChartData{
		PostID:    postID,
		PostTitle: postTitle,
		Period:    fmt.Sprintf("%04d%02d", year, month),
		Labels:    make([]string, 0, lastDay),
		Dates:     make([]string, 0, lastDay),
		Views:     make([]int64, 0, lastDay),
	}

	for day := 1; day <= lastDay; day++ {
		// labels show only odd days to keep the axis readable
		if day%2 == 1 {
			data.Labels = append(data.Labels, strconv.Itoa(day))
		} else {
			data.Labels = append(data.Labels, "")
		}

		data.Dates = append(data.Dates, firstOfMonth.AddDate(0, 0, day-1).Format("Jan 2, 2006"))

		count := series[day]
		data.Views = append(data.Views, count)
		data.TotalViews += count
		if count > 0 {
			data.PeriodHasData = true
		}
	}

	prev := firstOfMonth.AddDate(0, -1, 0)
	next := firstOfMonth.AddDate(0, 1, 0)

	data.Nav = ChartNav{
		Prev:        prev.Format("200601"),
		Current:     firstOfMonth.Format("200601"),
		CurrentName: firstOfMonth.Format("January 2006"),
		Next:        next.Format("200601"),
		NextEnabled: !next.After(s.now()),
	}

	return data, nil
}
