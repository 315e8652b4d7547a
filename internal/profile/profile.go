// Package profile computes a data-quality profile of an outlet inventory:
// missing values, numeric summaries with IQR outliers, category
// distributions and a keyword highlight by province.
package profile

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/outfall-cli/internal/record"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultKeyword marks cooling-water outlets in the discharge feature column.
const DefaultKeyword = "冷却水"

// DefaultTopValues bounds each category distribution.
const DefaultTopValues = 10

// Options controls profile construction.
type Options struct {
	// Keyword is matched as a substring of the discharge feature. Empty disables the highlight.
	Keyword string
	// TopValues limits each distribution; 0 means DefaultTopValues, negative means unlimited.
	TopValues int
}

// DefaultOptions returns the cooling-water highlight and ten values per distribution.
func DefaultOptions() Options {
	return Options{Keyword: DefaultKeyword, TopValues: DefaultTopValues}
}

// FieldStats counts present and missing values of one field.
type FieldStats struct {
	Field   record.Field
	NonNull int
	Missing int
}

// MissingPct is the share of missing values in percent.
func (s FieldStats) MissingPct() float64 {
	total := s.NonNull + s.Missing
	if total == 0 {
		return 0
	}
	return float64(s.Missing) * 100 / float64(total)
}

// NumericStats summarizes the present values of a numeric field.
type NumericStats struct {
	Field  record.Field
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Std    float64 // sample standard deviation
	Q1, Q3 float64
	// Lower and Upper are the IQR fences; values outside are outliers.
	Lower, Upper float64
	Outliers     int
}

// Category is one value of a distribution.
type Category struct {
	Value string
	Count int
}

// Distribution is the value frequency of a categorical field, most frequent
// first; equal counts keep first-appearance order.
type Distribution struct {
	Field  record.Field
	Unique int
	Values []Category
}

// Highlight counts outlets whose discharge feature contains a keyword.
type Highlight struct {
	Keyword    string
	Count      int
	ByProvince []Category
}

// Profile is the full data-quality report.
type Profile struct {
	Name          string
	Rows          int
	Fields        []FieldStats
	Numeric       []NumericStats
	Distributions []Distribution
	Highlight     *Highlight
}

var distributionFields = []record.Field{
	record.Province,
	record.OutletType,
	record.Feature,
	record.DischargeMode,
}

// Build profiles records.
func Build(name string, records []record.DischargeRecord, opt Options) *Profile {
	top := opt.TopValues
	if top == 0 {
		top = DefaultTopValues
	}
	p := &Profile{Name: name, Rows: len(records)}

	for _, f := range record.Fields() {
		fs := FieldStats{Field: f}
		var vals []float64
		for i := range records {
			r := &records[i]
			if f.Numeric() {
				if v, ok := r.Number(f).Get(); ok {
					fs.NonNull++
					vals = append(vals, v)
					continue
				}
			} else if r.Category(f) != "" {
				fs.NonNull++
				continue
			}
			fs.Missing++
		}
		p.Fields = append(p.Fields, fs)
		if f.Numeric() && len(vals) > 0 {
			p.Numeric = append(p.Numeric, numeric(f, vals))
		}
	}

	for _, f := range distributionFields {
		p.Distributions = append(p.Distributions, distribution(f, records, top))
	}

	if opt.Keyword != "" {
		h := &Highlight{Keyword: opt.Keyword}
		var matched []record.DischargeRecord
		for _, r := range records {
			if strings.Contains(r.Feature, opt.Keyword) {
				h.Count++
				matched = append(matched, r)
			}
		}
		h.ByProvince = distribution(record.Province, matched, -1).Values
		p.Highlight = h
	}
	return p
}

func numeric(f record.Field, vals []float64) NumericStats {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	ns := NumericStats{
		Field: f,
		Count: len(vals),
		Min:   floats.Min(vals),
		Max:   floats.Max(vals),
		Mean:  stat.Mean(vals, nil),
		Q1:    quantile(sorted, 0.25),
		Q3:    quantile(sorted, 0.75),
	}
	if len(vals) > 1 {
		ns.Std = stat.StdDev(vals, nil)
	}
	iqr := ns.Q3 - ns.Q1
	ns.Lower = ns.Q1 - 1.5*iqr
	ns.Upper = ns.Q3 + 1.5*iqr
	for _, v := range vals {
		if v < ns.Lower || v > ns.Upper {
			ns.Outliers++
		}
	}
	return ns
}

func distribution(f record.Field, records []record.DischargeRecord, top int) Distribution {
	counts := map[string]int{}
	var order []string
	for i := range records {
		v := records[i].Category(f)
		if v == "" {
			continue
		}
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	d := Distribution{Field: f, Unique: len(order), Values: make([]Category, 0, len(order))}
	for _, v := range order {
		d.Values = append(d.Values, Category{Value: v, Count: counts[v]})
	}
	sort.SliceStable(d.Values, func(i, j int) bool { return d.Values[i].Count > d.Values[j].Count })
	if top >= 0 && len(d.Values) > top {
		d.Values = d.Values[:top]
	}
	return d
}

// quantile interpolates linearly between closest ranks of sorted data.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Markdown renders the profile as bracketed plain-text sections.
func (p *Profile) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", p.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n\n", p.Rows))

	b.WriteString("[MISSING VALUES]\n")
	for _, fs := range p.Fields {
		b.WriteString(fmt.Sprintf("- %s: non-null %d, missing %d (%.1f%%)\n", fs.Field, fs.NonNull, fs.Missing, fs.MissingPct()))
	}
	b.WriteString("\n")

	if len(p.Numeric) > 0 {
		b.WriteString("[NUMERIC SUMMARY]\n")
		for _, ns := range p.Numeric {
			b.WriteString(fmt.Sprintf("- %s: n %d, min %.4g, max %.4g, mean %.4g, std %.4g; outliers: %d outside [%.4g, %.4g]\n",
				ns.Field, ns.Count, ns.Min, ns.Max, ns.Mean, ns.Std, ns.Outliers, ns.Lower, ns.Upper))
		}
		b.WriteString("\n")
	}

	for _, d := range p.Distributions {
		if len(d.Values) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("[DISTRIBUTION: %s] (%d unique)\n", strings.ToUpper(d.Field.String()), d.Unique))
		writeCategories(&b, d.Values)
		b.WriteString("\n")
	}

	if h := p.Highlight; h != nil {
		b.WriteString(fmt.Sprintf("[KEYWORD: %s]\n", h.Keyword))
		if h.Count == 0 {
			b.WriteString("No matching outlets\n")
		} else {
			b.WriteString(fmt.Sprintf("Matching outlets: %d\n", h.Count))
			writeCategories(&b, h.ByProvince)
		}
	}
	return b.String()
}

func writeCategories(b *strings.Builder, values []Category) {
	for _, c := range values {
		b.WriteString(fmt.Sprintf("- %s: %d\n", safeVal(c.Value), c.Count))
	}
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
