// Package spatial standardizes outlet coordinates so that clustering distances
// are measured in units of each dimension's spread rather than in degrees.
package spatial

import (
	"math"

	"github.com/KaramelBytes/outfall-cli/internal/record"
	"gonum.org/v1/gonum/stat"
)

// Point is a normalized (longitude, latitude) pair.
type Point struct {
	X, Y float64
}

// Scale holds the statistics used to standardize one dimension.
type Scale struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Apply standardizes v. A zero spread maps every value to 0.
func (s Scale) Apply(v float64) float64 {
	if s.Std == 0 {
		return 0
	}
	return (v - s.Mean) / s.Std
}

// Normalized is the clustering input derived from a record set.
type Normalized struct {
	// Indices are the record indices (input order) of the included records.
	Indices []int
	// Points are aligned with Indices.
	Points []Point
	Lon    Scale
	Lat    Scale
}

// Len returns the number of included records.
func (n Normalized) Len() int { return len(n.Points) }

// Normalize standardizes the coordinates of every record that has both a
// longitude and a latitude. Each dimension uses its own mean and population
// standard deviation. Records missing a coordinate are left out.
func Normalize(records []record.DischargeRecord) Normalized {
	var (
		idx  []int
		lons []float64
		lats []float64
	)
	for i := range records {
		r := &records[i]
		if !r.HasCoordinates() {
			continue
		}
		lon, _ := r.Longitude.Get()
		lat, _ := r.Latitude.Get()
		idx = append(idx, i)
		lons = append(lons, lon)
		lats = append(lats, lat)
	}
	out := Normalized{Indices: idx}
	if len(idx) == 0 {
		return out
	}
	out.Lon = fit(lons)
	out.Lat = fit(lats)
	out.Points = make([]Point, len(idx))
	for i := range idx {
		out.Points[i] = Point{X: out.Lon.Apply(lons[i]), Y: out.Lat.Apply(lats[i])}
	}
	return out
}

func fit(xs []float64) Scale {
	mean, std := stat.PopMeanStdDev(xs, nil)
	// Identical values can still leave a rounding residue in the variance.
	if constant(xs) || math.IsNaN(std) {
		return Scale{Mean: mean}
	}
	return Scale{Mean: mean, Std: std}
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}
