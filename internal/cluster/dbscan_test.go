package cluster

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/KaramelBytes/outfall-cli/internal/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pts(xy ...float64) []spatial.Point {
	out := make([]spatial.Point, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, spatial.Point{X: xy[i], Y: xy[i+1]})
	}
	return out
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 0.3, p.Eps)
	assert.Equal(t, 3, p.MinSamples)
	assert.NoError(t, p.Validate())
}

func TestParamsValidate(t *testing.T) {
	bad := []Params{
		{Eps: 0, MinSamples: 3},
		{Eps: -0.1, MinSamples: 3},
		{Eps: math.NaN(), MinSamples: 3},
		{Eps: math.Inf(1), MinSamples: 3},
		{Eps: 0.3, MinSamples: 0},
	}
	for _, p := range bad {
		assert.Error(t, p.Validate(), "%+v", p)
	}
	err := Params{Eps: 0, MinSamples: 0}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eps")
	assert.Contains(t, err.Error(), "min_samples")
}

func TestDBSCANEmpty(t *testing.T) {
	assert.Nil(t, DBSCAN(nil, DefaultParams()))
}

func TestDBSCANTightGroupWithOutliers(t *testing.T) {
	points := pts(
		0, 0,
		0.02, 0,
		5, 5, // outlier
		0, 0.02,
		0.02, 0.02,
		0.01, 0.01,
		-4, 3, // outlier
	)
	labels := DBSCAN(points, DefaultParams())
	require.Len(t, labels, len(points))
	assert.Equal(t, Labels{0, 0, Noise, 0, 0, 0, Noise}, labels)
	assert.Equal(t, 1, labels.Count())
	assert.Equal(t, 2, labels.Noise())
	assert.Equal(t, []int{5}, labels.Sizes())
}

func TestDBSCANIdenticalPoints(t *testing.T) {
	points := make([]spatial.Point, 4)
	labels := DBSCAN(points, DefaultParams())
	assert.Equal(t, Labels{0, 0, 0, 0}, labels)
	assert.Equal(t, 0, labels.Noise())
}

func TestDBSCANCoLocatedPointsStayLinear(t *testing.T) {
	points := make([]spatial.Point, 3000)
	labels := DBSCAN(points, DefaultParams())
	assert.Equal(t, []int{len(points)}, labels.Sizes())

	// Each point enters the expansion queue at most once and neighborhoods
	// share one buffer, so allocations grow with log n rather than n.
	allocs := testing.AllocsPerRun(3, func() {
		DBSCAN(points, DefaultParams())
	})
	assert.Less(t, allocs, 100.0)
}

func TestDBSCANTooFewPointsIsAllNoise(t *testing.T) {
	labels := DBSCAN(pts(0, 0, 0, 0), DefaultParams())
	assert.Equal(t, Labels{Noise, Noise}, labels)
	assert.Equal(t, 0, labels.Count())
}

func TestDBSCANMinSamplesOneMakesEveryPointCore(t *testing.T) {
	labels := DBSCAN(pts(0, 0, 10, 10, 0.1, 0), Params{Eps: 0.3, MinSamples: 1})
	assert.Equal(t, Labels{0, 1, 0}, labels)
}

func TestDBSCANClusterIDsFollowDiscoveryOrder(t *testing.T) {
	points := pts(
		10, 10, 10.1, 10, 10, 10.1, // discovered first
		0, 0, 0.1, 0, 0, 0.1,
	)
	labels := DBSCAN(points, DefaultParams())
	assert.Equal(t, Labels{0, 0, 0, 1, 1, 1}, labels)
}

func TestDBSCANBorderPointJoinsFirstReachingCluster(t *testing.T) {
	params := Params{Eps: 0.3, MinSamples: 4}
	a := []float64{-0.05, 0, 0.1, 0, 0.2, 0, 0, 0}
	border := []float64{0.45, 0}
	b := []float64{0.7, 0, 0.8, 0, 0.9, 0, 0.95, 0}

	var xy []float64
	xy = append(append(append(xy, a...), border...), b...)
	labels := DBSCAN(pts(xy...), params)
	assert.Equal(t, Labels{0, 0, 0, 0, 0, 1, 1, 1, 1}, labels)

	// Border listed first is noise when scanned, then claimed by the first cluster.
	xy = nil
	xy = append(append(append(xy, border...), b...), a...)
	labels = DBSCAN(pts(xy...), params)
	assert.Equal(t, Labels{0, 0, 0, 0, 0, 1, 1, 1, 1}, labels)
}

func TestDBSCANDeterministic(t *testing.T) {
	points := randomPoints(300, 7)
	first := DBSCAN(points, DefaultParams())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, DBSCAN(points, DefaultParams()))
	}
}

func TestDBSCANRadiusMonotonicity(t *testing.T) {
	points := randomPoints(250, 42)
	prev := DBSCAN(points, Params{Eps: 0.05, MinSamples: 3})
	for _, eps := range []float64{0.1, 0.2, 0.3, 0.5, 0.8} {
		cur := DBSCAN(points, Params{Eps: eps, MinSamples: 3})
		assert.LessOrEqual(t, cur.Noise(), prev.Noise(), "eps=%v", eps)
		for i := range prev {
			if prev[i] != Noise {
				assert.NotEqual(t, Noise, cur[i], "point %d fell back to noise at eps=%v", i, eps)
			}
		}
		prev = cur
	}
}

func TestDBSCANClustersAreDensityConnected(t *testing.T) {
	points := randomPoints(200, 3)
	params := DefaultParams()
	labels := DBSCAN(points, params)
	eps2 := params.Eps * params.Eps
	for i, c := range labels {
		nbrs := regionQuery(points, i, eps2)
		if c == Noise {
			// Noise is never within eps of a core point.
			for _, j := range nbrs {
				assert.Less(t, len(regionQuery(points, j, eps2)), params.MinSamples)
			}
			continue
		}
		if len(nbrs) < params.MinSamples {
			continue
		}
		for _, j := range nbrs {
			if len(regionQuery(points, j, eps2)) >= params.MinSamples {
				assert.Equal(t, c, labels[j], "core %d and core neighbor %d", i, j)
			} else {
				assert.NotEqual(t, Noise, labels[j], "border %d", j)
			}
		}
	}
}

func randomPoints(n int, seed uint64) []spatial.Point {
	r := rand.New(rand.NewSource(int64(seed)))
	out := make([]spatial.Point, n)
	for i := range out {
		// a few dense blobs plus uniform background
		if i%4 == 0 {
			out[i] = spatial.Point{X: r.Float64()*6 - 3, Y: r.Float64()*6 - 3}
			continue
		}
		cx := float64(i%3) - 1
		out[i] = spatial.Point{X: cx + r.NormFloat64()*0.15, Y: cx/2 + r.NormFloat64()*0.15}
	}
	return out
}

func TestParamsValidateJoinsErrors(t *testing.T) {
	err := Params{Eps: -1, MinSamples: 1}.Validate()
	require.Error(t, err)
	var joined interface{ Unwrap() []error }
	assert.True(t, errors.As(err, &joined))
}
