package backtest

import (
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	chart_types "github.com/go-echarts/go-echarts/v2/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// WriteEquityChart renders the equity curve and drawdown series as a
// standalone HTML page.
func WriteEquityChart(path string, equity []EquityPoint) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Backtest Equity",
			Width:     "1600px",
			Height:    "800px",
			Theme:     chart_types.ThemeInfographic,
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Equity / Drawdown",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			XAxisIndex: []int{0},
		}),
	)

	axis := make([]time.Time, 0, len(equity))
	equityLine := make([]opts.LineData, 0, len(equity))
	drawdownLine := make([]opts.LineData, 0, len(equity))

	for _, point := range equity {
		axis = append(axis, point.Time)
		equityLine = append(equityLine, opts.LineData{Value: point.Equity})
		drawdownLine = append(drawdownLine, opts.LineData{Value: point.Drawdown})
	}

	line.SetXAxis(axis).
		AddSeries("Equity", equityLine).
		AddSeries("Drawdown %", drawdownLine).
		SetSeriesOptions(
			charts.WithLineChartOpts(opts.LineChart{
				Smooth: opts.Bool(true),
			}),
		)

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeGraphWriteFailed, "failed to create chart file", err)
	}
	defer file.Close()

	if err := line.Render(file); err != nil {
		return errors.Wrap(errors.ErrCodeGraphWriteFailed, "failed to render chart", err)
	}

	return nil
}
