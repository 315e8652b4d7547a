package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/outfall-cli/internal/pipeline"
	"github.com/KaramelBytes/outfall-cli/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outlet(entity, name string, lon, lat, load float64) record.DischargeRecord {
	return record.DischargeRecord{
		Entity:      entity,
		OutletName:  name,
		OutletType:  "工业",
		Longitude:   record.Some(lon),
		Latitude:    record.Some(lat),
		PrimaryLoad: record.Some(load),
	}
}

func traced(t *testing.T) *pipeline.Result {
	t.Helper()
	recs := []record.DischargeRecord{
		outlet("Paper Mill", "north pipe", 111.00, 32.00, 10),
		outlet("Paper Mill", "south pipe", 111.01, 32.00, 20),
		outlet("Far Farm", "", 115.00, 36.00, 5),
		outlet("Chem|Works", "", 111.00, 32.01, 7),
		{Entity: "No Coords", PrimaryLoad: record.Some(3)},
		outlet("Chem|Works", "", 111.01, 32.01, 1),
		outlet("Brewery", "", 107.00, 28.00, 4),
	}
	res, err := pipeline.Run(recs, pipeline.DefaultParams())
	require.NoError(t, err)
	return res
}

func TestMarkdownReport(t *testing.T) {
	res := traced(t)
	md := Markdown(res, Options{Source: "outlets.xlsx", TopEntities: 2})

	assert.True(t, strings.HasPrefix(md, "# "+DefaultTitle+"\n"))
	for _, want := range []string{
		"- Source: outlets.xlsx",
		"- Run: " + res.RunID(),
		"- Outlets: 7 (clustered 6, without coordinates 1)",
		"- Parameters: eps 0.3, min_samples 3, top_n 5",
		"### 1.1 Top 2 entities by total pollutant load",
		"| Paper Mill | 2 | 30.00 | 0.00 | 工业 |",
		"| -1 | 3 | 12.00 |",
		"| 0 | 4 | 38.00 |",
		"#### Cluster 0",
		"  - Paper Mill / south pipe: 20.00 t/yr",
		"  - Chem/Works: 7.00 t/yr",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "| Far Farm |", "ranking is limited to the top entities")

	lon, lat := res.Scale()
	assert.InDelta(t, 111.0033, lon.Mean, 1e-4)
	assert.Contains(t, md, fmt.Sprintf("- Coordinate scale: lon mean %.4f std %.4f, lat mean %.4f std %.4f\n",
		lon.Mean, lon.Std, lat.Mean, lat.Std))
}

func TestMarkdownNoClusters(t *testing.T) {
	res, err := pipeline.Run(nil, pipeline.DefaultParams())
	require.NoError(t, err)
	md := Markdown(res, Options{Title: "Empty"})
	assert.Contains(t, md, "# Empty")
	assert.Contains(t, md, "_No records._")
	assert.Contains(t, md, "_No clusters found._")
	assert.NotContains(t, md, "Coordinate scale")
}

func TestGeoJSON(t *testing.T) {
	res := traced(t)
	fc := GeoJSON(res)
	// six outlets with coordinates plus one centroid
	require.Len(t, fc.Features, 7)

	kinds := map[string]int{}
	for _, f := range fc.Features {
		kinds[f.Properties.MustString("kind")]++
	}
	assert.Equal(t, map[string]int{"outlet": 6, "centroid": 1}, kinds)

	first := fc.Features[0]
	assert.Equal(t, "Paper Mill", first.Properties["entity"])
	assert.Equal(t, 0, first.Properties["cluster"])

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"FeatureCollection"`)
	assert.Contains(t, string(data), `"kind":"centroid"`)
}

func TestHistogram(t *testing.T) {
	edges, counts := histogram([]float64{0, 1, 2, 3, 4, 10}, 5)
	require.Len(t, edges, 6)
	assert.Equal(t, []int{2, 2, 1, 0, 1}, counts)
	assert.Equal(t, 0.0, edges[0])
	assert.Equal(t, 10.0, edges[5])

	_, counts = histogram([]float64{2, 2, 2}, 4)
	sum := 0
	for _, c := range counts {
		sum += c
	}
	assert.Equal(t, 3, sum)

	edges, counts = histogram([]float64{0, 5e-324}, HistogramBins)
	assert.Equal(t, []float64{0, 5e-324}, edges)
	assert.Equal(t, []int{2}, counts)

	_, counts = histogram([]float64{-math.MaxFloat64, 0, math.MaxFloat64}, HistogramBins)
	assert.Equal(t, []int{3}, counts)

	edges, counts = histogram(nil, 50)
	assert.Nil(t, edges)
	assert.Nil(t, counts)
}

func TestChartsRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Charts(traced(t), ChartOptions{Title: "Trace"}, &buf))
	html := buf.String()
	for _, want := range []string{
		"Spatial Distribution of Outlets",
		"Total Pollution per Outlet",
		"Top Entities by Total Pollution",
		"Cluster 0",
		"Noise",
	} {
		assert.Contains(t, html, want)
	}
}
