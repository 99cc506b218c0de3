package report

import (
	"errors"
	"fmt"
	"sort"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/etfcompare/etfcompare/pkg/models"
	"github.com/etfcompare/etfcompare/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Performance Chart — rebased growth lines rendered to PNG
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for the performance chart.
type ChartConfig struct {
	Width       int // pixels (default: 900)
	Height      int // pixels (default: 420)
	SplitNumber int // max x-axis labels (default: 8)
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:       900,
		Height:      420,
		SplitNumber: 8,
	}
}

// PerformanceChart renders the instruments' cumulative growth as a PNG line
// chart, each series rebased to 100 on the first date all series share.
// Series are aligned on the intersection of their dates, so instruments
// with different listing histories stay comparable.
func PerformanceChart(seriesList []*models.PriceSeries, title string, cfg ChartConfig) ([]byte, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg = DefaultChartConfig()
	}
	if cfg.SplitNumber <= 0 {
		cfg.SplitNumber = 8
	}

	var usable []*models.PriceSeries
	for _, s := range seriesList {
		if s.Len() >= 2 {
			usable = append(usable, s)
		}
	}
	if len(usable) == 0 {
		return nil, errors.New("no series with enough points to chart")
	}

	// Intersect dates across all series.
	counts := make(map[string]int)
	for _, s := range usable {
		for _, p := range s.Points {
			counts[utils.FormatDate(p.Date)]++
		}
	}
	common := make([]string, 0, len(counts))
	for d, c := range counts {
		if c == len(usable) {
			common = append(common, d)
		}
	}
	if len(common) < 2 {
		return nil, errors.New("fewer than two overlapping dates across series")
	}
	// ISO dates sort chronologically.
	sort.Strings(common)

	index := make(map[string]int, len(common))
	for i, d := range common {
		index[d] = i
	}

	values := make([][]float64, len(usable))
	names := make([]string, len(usable))
	var yMin, yMax float64
	for i, s := range usable {
		aligned := make([]float64, len(common))
		for _, p := range s.Points {
			if j, ok := index[utils.FormatDate(p.Date)]; ok {
				aligned[j] = p.AdjClose
			}
		}
		base := aligned[0]
		for j, v := range aligned {
			rebased := v / base * 100
			aligned[j] = rebased
			if i == 0 && j == 0 {
				yMin, yMax = rebased, rebased
				continue
			}
			if rebased < yMin {
				yMin = rebased
			}
			if rebased > yMax {
				yMax = rebased
			}
		}
		values[i] = aligned
		names[i] = s.Ticker
	}

	pad := (yMax - yMin) * 0.05
	if pad == 0 {
		pad = 1
	}
	minY := yMin - pad
	maxY := yMax + pad

	series := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range series {
		series[i].Name = names[i]
	}

	painter, err := charts.Render(charts.ChartOption{SeriesList: series},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        common,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: cfg.SplitNumber,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &minY, Max: &maxY, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(cfg.Width),
		charts.HeightOptionFunc(cfg.Height),
	)
	if err != nil {
		return nil, fmt.Errorf("rendering chart: %w", err)
	}
	return painter.Bytes()
}
