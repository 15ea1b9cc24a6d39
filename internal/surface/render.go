package surface

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"ChartDeck/internal/chart"
	"ChartDeck/internal/domain/models"
)

// Snapshot renders the retained series as a standalone HTML page: the
// candlestick series with line overlays on top, and volume underneath.
func (r *Retained) Snapshot(w io.Writer, title string) error {
	series := r.Series()
	width, height := r.Size()
	if r.Destroyed() {
		return ErrDestroyed
	}

	var price *SeriesInfo
	var volume *SeriesInfo
	var lines []SeriesInfo
	for i := range series {
		switch series[i].Kind {
		case chart.SeriesCandlestick:
			if price == nil {
				price = &series[i]
			}
		case chart.SeriesHistogram:
			if volume == nil {
				volume = &series[i]
			}
		case chart.SeriesLine:
			lines = append(lines, series[i])
		}
	}
	if price == nil {
		return fmt.Errorf("snapshot %s: no price series", r.containerID)
	}

	axis := make([]string, len(price.Points))
	index := make(map[models.TimeKey]int, len(price.Points))
	klines := make([]opts.KlineData, len(price.Points))
	for i, p := range price.Points {
		axis[i] = p.Time.String()
		index[p.Time] = i
		klines[i] = opts.KlineData{Value: [4]float64{p.Open, p.Close, p.Low, p.High}}
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     fmt.Sprintf("%dpx", orDefault(width, 960)),
			Height:    fmt.Sprintf("%dpx", orDefault(height, 540)),
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Left: "center"}),
		charts.WithXAxisOpts(opts.XAxis{SplitNumber: 20}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     true,
			SplitLine: &opts.SplitLine{Show: true},
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			XAxisIndex: []int{0},
			Start:      0,
			End:        100,
		}),
		charts.WithLegendOpts(opts.Legend{Show: true, Top: "5%"}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:        true,
			Trigger:     "axis",
			AxisPointer: &opts.AxisPointer{Type: "cross"},
		}),
	)
	kline.SetXAxis(axis).AddSeries(price.Style.Title, klines,
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        price.Style.UpColor,
			Color0:       price.Style.DownColor,
			BorderColor:  price.Style.UpColor,
			BorderColor0: price.Style.DownColor,
		}),
	)

	if len(lines) > 0 {
		line := charts.NewLine()
		line.SetXAxis(axis)
		for _, s := range lines {
			line.AddSeries(s.Style.Title, alignLine(s.Points, index, len(axis)),
				charts.WithLineStyleOpts(opts.LineStyle{Color: s.Style.Color, Width: float32(s.Style.LineWidth)}),
			)
		}
		kline.Overlap(line)
	}

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(kline)

	if volume != nil {
		bars := make([]opts.BarData, len(axis))
		for _, p := range volume.Points {
			if i, ok := index[p.Time]; ok {
				bars[i] = opts.BarData{Value: p.Value, ItemStyle: &opts.ItemStyle{Color: p.Color}}
			}
		}
		vol := charts.NewBar()
		vol.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{
				Width:  fmt.Sprintf("%dpx", orDefault(width, 960)),
				Height: fmt.Sprintf("%dpx", orDefault(height, 540)/4),
			}),
			charts.WithXAxisOpts(opts.XAxis{Show: false}),
			charts.WithLegendOpts(opts.Legend{Show: false}),
		)
		vol.SetXAxis(axis).AddSeries(volume.Style.Title, bars)
		page.AddCharts(vol)
	}

	return page.Render(w)
}

// alignLine places overlay values on the price category axis. Positions
// without a value stay null so the line breaks there.
func alignLine(points []chart.SeriesPoint, index map[models.TimeKey]int, n int) []opts.LineData {
	data := make([]opts.LineData, n)
	for _, p := range points {
		if i, ok := index[p.Time]; ok {
			data[i] = opts.LineData{Value: p.Value}
		}
	}
	return data
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
