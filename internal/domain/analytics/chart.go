package analytics

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderRevenueChart writes a standalone HTML page with a bar chart of
// revenue per month.
func RenderRevenueChart(w io.Writer, points []MonthRevenue) error {
	xAxis := make([]string, 0, len(points))
	yData := make([]opts.BarData, 0, len(points))
	for _, p := range points {
		xAxis = append(xAxis, p.Month)
		yData = append(yData, opts.BarData{Value: p.Revenue})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Monthly revenue",
			Width:     "100%",
			Height:    "360px",
			ChartID:   "monthly_revenue",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Monthly revenue",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "INR",
		}),
	)
	bar.SetXAxis(xAxis).AddSeries("Revenue", yData)

	return bar.Render(w)
}
