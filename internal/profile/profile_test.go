package profile

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/outfall-cli/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inventory() []record.DischargeRecord {
	loads := []float64{1, 2, 3, 4, 5, 6, 7, 100}
	provinces := []string{"湖北", "河南", "湖北", "陕西", "河南", "湖北", "", "河南"}
	features := []string{"工业废水", "冷却水", "生活污水", "冷却水排放", "冷却水", "工业废水", "冷却水", ""}
	out := make([]record.DischargeRecord, len(loads))
	for i := range loads {
		out[i] = record.DischargeRecord{
			Index:       i,
			Entity:      "E",
			Province:    provinces[i],
			Feature:     features[i],
			OutletType:  "工业",
			PrimaryLoad: record.Some(loads[i]),
			Cluster:     record.Noise,
		}
	}
	out[3].PrimaryLoad = record.Missing()
	out[3].Longitude = record.Some(111)
	return out
}

func field(t *testing.T, p *Profile, f record.Field) FieldStats {
	t.Helper()
	for _, fs := range p.Fields {
		if fs.Field == f {
			return fs
		}
	}
	t.Fatalf("field %s missing from profile", f)
	return FieldStats{}
}

func TestBuildMissingCounts(t *testing.T) {
	p := Build("inventory.csv", inventory(), DefaultOptions())
	assert.Equal(t, 8, p.Rows)
	require.Len(t, p.Fields, len(record.Fields()))

	prov := field(t, p, record.Province)
	assert.Equal(t, 7, prov.NonNull)
	assert.Equal(t, 1, prov.Missing)
	assert.InDelta(t, 12.5, prov.MissingPct(), 1e-9)

	lat := field(t, p, record.Latitude)
	assert.Equal(t, 0, lat.NonNull)
	assert.Equal(t, 100.0, lat.MissingPct())

	assert.Equal(t, 0.0, FieldStats{}.MissingPct())
}

func TestBuildNumericSummaryAndOutliers(t *testing.T) {
	p := Build("", inventory(), DefaultOptions())
	var load *NumericStats
	for i := range p.Numeric {
		if p.Numeric[i].Field == record.PrimaryLoad {
			load = &p.Numeric[i]
		}
	}
	require.NotNil(t, load)
	// present loads: 1 2 3 5 6 7 100
	assert.Equal(t, 7, load.Count)
	assert.Equal(t, 1.0, load.Min)
	assert.Equal(t, 100.0, load.Max)
	assert.InDelta(t, 124.0/7, load.Mean, 1e-9)
	assert.InDelta(t, 2.5, load.Q1, 1e-9)
	assert.InDelta(t, 6.5, load.Q3, 1e-9)
	assert.InDelta(t, -3.5, load.Lower, 1e-9)
	assert.InDelta(t, 12.5, load.Upper, 1e-9)
	assert.Equal(t, 1, load.Outliers)
	assert.Greater(t, load.Std, 0.0)

	for _, ns := range p.Numeric {
		assert.NotEqual(t, record.Latitude, ns.Field, "fields without values are not summarized")
	}
}

func TestBuildDistributions(t *testing.T) {
	p := Build("", inventory(), Options{Keyword: DefaultKeyword, TopValues: 2})
	require.Len(t, p.Distributions, 4)
	prov := p.Distributions[0]
	assert.Equal(t, record.Province, prov.Field)
	assert.Equal(t, 3, prov.Unique)
	// 湖北 and 河南 tie at 3; 湖北 appears first
	assert.Equal(t, []Category{{"湖北", 3}, {"河南", 3}}, prov.Values)

	feat := p.Distributions[2]
	assert.Equal(t, record.Feature, feat.Field)
	assert.Equal(t, Category{"冷却水", 3}, feat.Values[0])
}

func TestBuildKeywordHighlight(t *testing.T) {
	p := Build("", inventory(), DefaultOptions())
	require.NotNil(t, p.Highlight)
	assert.Equal(t, 4, p.Highlight.Count)
	assert.Equal(t, []Category{{"河南", 2}, {"陕西", 1}}, p.Highlight.ByProvince)

	none := Build("", inventory(), Options{})
	assert.Nil(t, none.Highlight)
}

func TestQuantileLinear(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.0, quantile(s, 0))
	assert.Equal(t, 4.0, quantile(s, 1))
	assert.InDelta(t, 1.75, quantile(s, 0.25), 1e-12)
	assert.InDelta(t, 2.5, quantile(s, 0.5), 1e-12)
	assert.Equal(t, 0.0, quantile(nil, 0.5))
}

func TestMarkdownSections(t *testing.T) {
	md := Build("inventory.csv", inventory(), DefaultOptions()).Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: inventory.csv",
		"Rows: 8",
		"[MISSING VALUES]",
		"- province: non-null 7, missing 1 (12.5%)",
		"[NUMERIC SUMMARY]",
		"outliers: 1 outside",
		"[DISTRIBUTION: PROVINCE] (3 unique)",
		"[KEYWORD: 冷却水]",
		"Matching outlets: 4",
	} {
		assert.True(t, strings.Contains(md, want), "markdown missing %q:\n%s", want, md)
	}

	empty := Build("", nil, Options{Keyword: "冷却水"}).Markdown()
	assert.Contains(t, empty, "No matching outlets")
	assert.NotContains(t, empty, "[NUMERIC SUMMARY]")
}
