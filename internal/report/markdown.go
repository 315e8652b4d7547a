// Package report renders a pipeline result as a Markdown trace report, a
// GeoJSON outlet map and an HTML chart page.
package report

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/outfall-cli/internal/pipeline"
	"github.com/KaramelBytes/outfall-cli/internal/record"
)

const (
	DefaultTitle       = "Pollution Source Trace Report"
	DefaultTopEntities = 10
)

// Options controls the Markdown report.
type Options struct {
	Title string
	// Source names the input file in the report header.
	Source string
	// TopEntities is the number of entities in the ranking table.
	TopEntities int
}

// Markdown renders the trace report.
func Markdown(res *pipeline.Result, opt Options) string {
	title := opt.Title
	if title == "" {
		title = DefaultTitle
	}
	topK := opt.TopEntities
	if topK <= 0 {
		topK = DefaultTopEntities
	}
	params := res.Params()
	records := res.Records()
	clusters := res.Clusters()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if opt.Source != "" {
		fmt.Fprintf(&b, "- Source: %s\n", opt.Source)
	}
	fmt.Fprintf(&b, "- Run: %s\n", res.RunID())
	fmt.Fprintf(&b, "- Outlets: %d (clustered %d, without coordinates %d)\n",
		len(records), len(records)-res.ExcludedCount(), res.ExcludedCount())
	if lon, lat := res.Scale(); res.ExcludedCount() < len(records) {
		fmt.Fprintf(&b, "- Coordinate scale: lon mean %.4f std %.4f, lat mean %.4f std %.4f\n",
			lon.Mean, lon.Std, lat.Mean, lat.Std)
	}
	fmt.Fprintf(&b, "- Parameters: eps %g, min_samples %d, top_n %d\n\n",
		params.Cluster.Eps, params.Cluster.MinSamples, params.TopN)

	b.WriteString("## 1. Major Pollution Sources\n\n")
	fmt.Fprintf(&b, "### 1.1 Top %d entities by total pollutant load\n\n", topK)
	entities := res.Entities()
	if len(entities) == 0 {
		b.WriteString("_No records._\n\n")
	} else {
		b.WriteString("| Entity | Outlets | Total pollution (t/yr) | Wastewater (10k t/yr) | Dominant outlet type |\n")
		b.WriteString("|---|---:|---:|---:|---|\n")
		for i, e := range entities {
			if i >= topK {
				break
			}
			fmt.Fprintf(&b, "| %s | %d | %.2f | %.2f | %s |\n",
				safeName(e.Entity), e.Records, e.TotalPollution, e.Wastewater, safeVal(e.DominantType))
		}
		b.WriteString("\n")
	}

	b.WriteString("## 2. Spatial Distribution\n\n")
	b.WriteString("### 2.1 Cluster summary\n\n")
	b.WriteString("| Cluster | Outlets | Total pollution (t/yr) |\n")
	b.WriteString("|---:|---:|---:|\n")
	if n := res.NoiseCount(); n > 0 {
		var noiseTotal float64
		for i := range records {
			if records[i].Cluster == record.Noise {
				noiseTotal += records[i].TotalPollution()
			}
		}
		fmt.Fprintf(&b, "| %d | %d | %.2f |\n", record.Noise, n, noiseTotal)
	}
	for _, c := range clusters {
		fmt.Fprintf(&b, "| %d | %d | %.2f |\n", c.ID, c.Count, c.TotalPollution)
	}
	b.WriteString("\n")

	b.WriteString("### 2.2 Cluster details\n\n")
	if len(clusters) == 0 {
		b.WriteString("_No clusters found._\n")
	}
	for _, c := range clusters {
		fmt.Fprintf(&b, "#### Cluster %d\n\n", c.ID)
		fmt.Fprintf(&b, "- Outlets: %d\n", c.Count)
		fmt.Fprintf(&b, "- Total pollution: %.2f t/yr\n", c.TotalPollution)
		fmt.Fprintf(&b, "- Centroid: %.5f, %.5f (spread %.2f km)\n", c.Centroid.Lon(), c.Centroid.Lat(), c.SpreadKm)
		b.WriteString("- Main contributors:\n")
		for _, m := range c.Top {
			name := safeName(m.Entity)
			if m.OutletName != "" {
				name += " / " + safeVal(m.OutletName)
			}
			fmt.Fprintf(&b, "  - %s: %.2f t/yr\n", name, m.TotalPollution)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return safeVal(s)
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
