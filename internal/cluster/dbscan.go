// Package cluster implements density-based clustering (DBSCAN) over
// normalized outlet coordinates.
package cluster

import (
	"errors"
	"fmt"
	"math"

	"github.com/KaramelBytes/outfall-cli/internal/spatial"
)

const (
	// DefaultEps is the neighborhood radius in normalized-distance units.
	DefaultEps = 0.3
	// DefaultMinSamples is the neighborhood size (self included) that makes a core point.
	DefaultMinSamples = 3
)

// Noise labels points reachable from no core point.
const Noise = -1

const unvisited = -2

// Params contains parameters for the DBSCAN clustering algorithm.
type Params struct {
	Eps        float64 `json:"eps"`
	MinSamples int     `json:"min_samples"`
}

// DefaultParams returns the default clustering parameters.
func DefaultParams() Params {
	return Params{Eps: DefaultEps, MinSamples: DefaultMinSamples}
}

// Validate rejects a non-positive or non-finite radius and a minimum
// neighborhood size below 1.
func (p Params) Validate() error {
	var errs []error
	if math.IsNaN(p.Eps) || math.IsInf(p.Eps, 0) || p.Eps <= 0 {
		errs = append(errs, fmt.Errorf("eps must be a finite number > 0, got %v", p.Eps))
	}
	if p.MinSamples < 1 {
		errs = append(errs, fmt.Errorf("min_samples must be >= 1, got %d", p.MinSamples))
	}
	return errors.Join(errs...)
}

// Labels holds one cluster label per input point: Noise or a cluster id.
type Labels []int

// Count returns the number of clusters.
func (l Labels) Count() int {
	n := 0
	for _, c := range l {
		if c+1 > n {
			n = c + 1
		}
	}
	return n
}

// Noise returns the number of noise points.
func (l Labels) Noise() int {
	n := 0
	for _, c := range l {
		if c == Noise {
			n++
		}
	}
	return n
}

// Sizes returns the member count of each cluster, indexed by cluster id.
func (l Labels) Sizes() []int {
	sizes := make([]int, l.Count())
	for _, c := range l {
		if c >= 0 {
			sizes[c]++
		}
	}
	return sizes
}

// DBSCAN labels points by density reachability. Cluster ids start at 0 and
// follow discovery order while scanning points in input order; a border point
// reachable from several clusters keeps the first one that reached it. The
// result depends only on the input order and params.
//
// Neighborhoods are found by exhaustive search, which is quadratic in the
// number of points.
func DBSCAN(points []spatial.Point, params Params) Labels {
	n := len(points)
	if n == 0 {
		return nil
	}
	labels := make(Labels, n)
	for i := range labels {
		labels[i] = unvisited
	}
	eps2 := params.Eps * params.Eps
	clusterID := 0
	// buf holds one neighborhood at a time; queue holds each point at most once.
	var buf, queue []int

	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue // Already processed
		}
		buf = appendNeighbors(buf[:0], points, i, eps2)
		if len(buf) < params.MinSamples {
			labels[i] = Noise
			continue
		}
		labels[i] = clusterID
		queue = claim(queue[:0], labels, buf, clusterID)
		for head := 0; head < len(queue); head++ {
			idx := queue[head]
			buf = appendNeighbors(buf[:0], points, idx, eps2)
			if len(buf) >= params.MinSamples {
				// Core point - its unclaimed neighbors join the queue
				queue = claim(queue, labels, buf, clusterID)
			}
		}
		clusterID++
	}
	return labels
}

// claim labels unclaimed neighbors with clusterID. Unvisited points are
// appended to queue for expansion; noise points become border points.
func claim(queue []int, labels Labels, neighbors []int, clusterID int) []int {
	for _, idx := range neighbors {
		switch labels[idx] {
		case Noise:
			labels[idx] = clusterID
		case unvisited:
			labels[idx] = clusterID
			queue = append(queue, idx)
		}
	}
	return queue
}

// regionQuery returns, in index order, every point within eps of points[idx],
// idx itself included. Distances are compared squared.
func regionQuery(points []spatial.Point, idx int, eps2 float64) []int {
	return appendNeighbors(nil, points, idx, eps2)
}

func appendNeighbors(dst []int, points []spatial.Point, idx int, eps2 float64) []int {
	p := points[idx]
	for j, q := range points {
		dx := q.X - p.X
		dy := q.Y - p.Y
		if dx*dx+dy*dy <= eps2 {
			dst = append(dst, j)
		}
	}
	return dst
}
