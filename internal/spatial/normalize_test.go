package spatial

import (
	"math"
	"testing"

	"github.com/KaramelBytes/outfall-cli/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(lon, lat record.Value) record.DischargeRecord {
	return record.DischargeRecord{Longitude: lon, Latitude: lat, Cluster: record.Noise}
}

func TestNormalizeStandardizesEachDimension(t *testing.T) {
	recs := []record.DischargeRecord{
		rec(record.Some(110), record.Some(30)),
		rec(record.Some(112), record.Some(30)),
		rec(record.Some(114), record.Some(36)),
	}
	n := Normalize(recs)
	require.Equal(t, 3, n.Len())
	assert.Equal(t, []int{0, 1, 2}, n.Indices)

	assert.InDelta(t, 112, n.Lon.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(8.0/3.0), n.Lon.Std, 1e-12, "population std")
	assert.InDelta(t, 32, n.Lat.Mean, 1e-12)

	var sumX, sumY, sumXX float64
	for _, p := range n.Points {
		sumX += p.X
		sumY += p.Y
		sumXX += p.X * p.X
	}
	assert.InDelta(t, 0, sumX, 1e-9)
	assert.InDelta(t, 0, sumY, 1e-9)
	assert.InDelta(t, 1, sumXX/3, 1e-9, "unit variance")
	assert.InDelta(t, -math.Sqrt(1.5), n.Points[0].X, 1e-9)
}

func TestNormalizeExcludesMissingCoordinates(t *testing.T) {
	recs := []record.DischargeRecord{
		rec(record.Some(110), record.Missing()),
		rec(record.Some(111), record.Some(31)),
		rec(record.Missing(), record.Some(31)),
		rec(record.Some(113), record.Some(33)),
	}
	n := Normalize(recs)
	assert.Equal(t, []int{1, 3}, n.Indices)
	assert.InDelta(t, 112, n.Lon.Mean, 1e-12, "missing rows do not contribute to the mean")
	require.Len(t, n.Points, 2)
	assert.InDelta(t, -1, n.Points[0].X, 1e-12)
	assert.InDelta(t, 1, n.Points[1].Y, 1e-12)
}

func TestNormalizeZeroSpreadMapsToZero(t *testing.T) {
	recs := []record.DischargeRecord{
		rec(record.Some(111.1), record.Some(32.7)),
		rec(record.Some(111.1), record.Some(32.7)),
		rec(record.Some(111.1), record.Some(32.9)),
	}
	n := Normalize(recs)
	assert.Equal(t, 0.0, n.Lon.Std)
	for _, p := range n.Points {
		assert.Equal(t, 0.0, p.X)
		assert.False(t, math.IsNaN(p.Y))
	}
	assert.NotEqual(t, n.Points[0].Y, n.Points[2].Y)
}

func TestNormalizeEmptyAndSingle(t *testing.T) {
	assert.Equal(t, 0, Normalize(nil).Len())

	n := Normalize([]record.DischargeRecord{rec(record.Some(1), record.Some(2))})
	require.Equal(t, 1, n.Len())
	assert.Equal(t, Point{}, n.Points[0])
}
