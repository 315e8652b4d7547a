package report

import (
	"fmt"
	"io"
	"math"

	"github.com/KaramelBytes/outfall-cli/internal/pipeline"
	"github.com/KaramelBytes/outfall-cli/internal/record"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// HistogramBins is the number of bins in the pollution histogram.
const HistogramBins = 50

// ChartOptions controls the HTML chart page.
type ChartOptions struct {
	Title       string
	TopEntities int
	// AssetsHost overrides where the echarts scripts are loaded from.
	AssetsHost string
}

// Charts renders a page with the spatial cluster scatter, the distribution of
// total pollution per outlet and the top entities by load.
func Charts(res *pipeline.Result, opt ChartOptions, w io.Writer) error {
	if opt.Title == "" {
		opt.Title = DefaultTitle
	}
	if opt.TopEntities <= 0 {
		opt.TopEntities = DefaultTopEntities
	}
	page := components.NewPage()
	if opt.AssetsHost != "" {
		page.SetAssetsHost(opt.AssetsHost)
	}
	page.AddCharts(
		spatialScatter(res, opt),
		pollutionHistogram(res, opt),
		entityBar(res, opt),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	return nil
}

func initOpts(opt ChartOptions, title string) opts.Initialization {
	return opts.Initialization{PageTitle: title, Width: "1100px", Height: "720px", AssetsHost: opt.AssetsHost}
}

// spatialScatter plots raw coordinates with one series per cluster and noise last.
func spatialScatter(res *pipeline.Result, opt ChartOptions) *charts.Scatter {
	records := res.Records()
	series := map[int][]opts.ScatterData{}
	minLon, maxLon := math.Inf(1), math.Inf(-1)
	minLat, maxLat := math.Inf(1), math.Inf(-1)
	for _, r := range records {
		if !r.HasCoordinates() {
			continue
		}
		lon, _ := r.Longitude.Get()
		lat, _ := r.Latitude.Get()
		minLon, maxLon = math.Min(minLon, lon), math.Max(maxLon, lon)
		minLat, maxLat = math.Min(minLat, lat), math.Max(maxLat, lat)
		series[r.Cluster] = append(series[r.Cluster], opts.ScatterData{
			Name:  r.Entity,
			Value: []interface{}{lon, lat, r.TotalPollution()},
		})
	}

	scatter := charts.NewScatter()
	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(initOpts(opt, opt.Title)),
		charts.WithTitleOpts(opts.Title{
			Title:    "Spatial Distribution of Outlets",
			Subtitle: fmt.Sprintf("clusters=%d noise=%d", res.ClusterCount(), res.NoiseCount()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	}
	if !math.IsInf(minLon, 1) {
		padLon := math.Max((maxLon-minLon)*0.05, 0.01)
		padLat := math.Max((maxLat-minLat)*0.05, 0.01)
		global = append(global,
			charts.WithXAxisOpts(opts.XAxis{Name: "Longitude", Min: round4(minLon - padLon), Max: round4(maxLon + padLon), NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Name: "Latitude", Min: round4(minLat - padLat), Max: round4(maxLat + padLat), NameLocation: "middle", NameGap: 40}),
		)
	}
	scatter.SetGlobalOptions(global...)

	for _, c := range res.Clusters() {
		scatter.AddSeries(fmt.Sprintf("Cluster %d", c.ID), series[c.ID],
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	}
	if pts := series[record.Noise]; len(pts) > 0 {
		scatter.AddSeries("Noise", pts,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#9e9e9e"}))
	}
	return scatter
}

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }

// histogram counts values into n equal-width bins over [min, max]. The last
// bin is closed on the right.
func histogram(values []float64, n int) (edges []float64, counts []int) {
	if len(values) == 0 || n <= 0 {
		return nil, nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if hi == lo {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(n)
	if width == 0 || math.IsInf(width, 0) {
		// Range too narrow or too wide to split; one bin holds everything.
		return []float64{lo, hi}, []int{len(values)}
	}
	edges = make([]float64, n+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	counts = make([]int, n)
	for _, v := range values {
		i := int((v - lo) / width)
		i = min(max(i, 0), n-1)
		counts[i]++
	}
	return edges, counts
}

func pollutionHistogram(res *pipeline.Result, opt ChartOptions) *charts.Bar {
	records := res.Records()
	values := make([]float64, len(records))
	for i := range records {
		values[i] = records[i].TotalPollution()
	}
	edges, counts := histogram(values, HistogramBins)
	x := make([]string, len(counts))
	y := make([]opts.BarData, len(counts))
	for i, c := range counts {
		x[i] = fmt.Sprintf("%.4g", edges[i])
		y[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(opt, opt.Title)),
		charts.WithTitleOpts(opts.Title{Title: "Total Pollution per Outlet", Subtitle: fmt.Sprintf("outlets=%d bins=%d", len(values), len(counts))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t/yr", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Outlets"}),
	)
	bar.SetXAxis(x).AddSeries("outlets", y)
	return bar
}

func entityBar(res *pipeline.Result, opt ChartOptions) *charts.Bar {
	entities := res.Entities()
	if len(entities) > opt.TopEntities {
		entities = entities[:opt.TopEntities]
	}
	x := make([]string, len(entities))
	y := make([]opts.BarData, len(entities))
	for i, e := range entities {
		x[i] = safeName(e.Entity)
		y[i] = opts.BarData{Value: math.Round(e.TotalPollution*100) / 100}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(opt, opt.Title)),
		charts.WithTitleOpts(opts.Title{Title: "Top Entities by Total Pollution"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("total pollution (t/yr)", y,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}
