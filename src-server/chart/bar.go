package chart

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
)

// ErrNoData means there is nothing to plot; a bar chart needs at least one
// bar.
var ErrNoData = errors.New("no events to chart")

// Bar renders the per-day event counts as a PNG bar chart, dates ascending
// on the x-axis.
func Bar(perDay map[string]int) ([]byte, error) {
	if len(perDay) == 0 {
		return nil, ErrNoData
	}

	dates := make([]string, 0, len(perDay))
	for date := range perDay {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	bars := make([]chart.Value, 0, len(dates))
	maxCount := 0
	for _, date := range dates {
		if perDay[date] > maxCount {
			maxCount = perDay[date]
		}
		bars = append(bars, chart.Value{
			Label: date,
			Value: float64(perDay[date]),
		})
	}

	graph := chart.BarChart{
		Title:    "Number of Events per Day",
		Width:    1024,
		Height:   512,
		BarWidth: 48,
		XAxis: chart.Style{
			TextRotationDegrees: 45,
		},
		// an explicit y-range: go-chart refuses to derive one when every
		// bar has the same value
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount)},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render bar chart: %w", err)
	}
	return buf.Bytes(), nil
}
