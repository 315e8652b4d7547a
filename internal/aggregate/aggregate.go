// Package aggregate groups labeled discharge records by owning entity and by
// spatial cluster and ranks them by total pollutant load.
package aggregate

import (
	"sort"

	"github.com/KaramelBytes/outfall-cli/internal/record"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"gonum.org/v1/gonum/stat"
)

// DefaultTopN is the number of ranked members reported per cluster.
const DefaultTopN = 5

// EntityAggregate summarizes all outlets of one owning entity.
type EntityAggregate struct {
	Entity         string  `json:"entity"`
	Records        int     `json:"records"`
	TotalPollution float64 `json:"total_pollution"`
	Wastewater     float64 `json:"wastewater"`
	// DominantType is the most frequent non-empty outlet type; ties go to the
	// value seen first. Empty when no record has a type.
	DominantType string `json:"dominant_type"`
	// Members are record indices in input order.
	Members []int `json:"members"`
}

// Member is one ranked outlet inside a cluster.
type Member struct {
	Index          int     `json:"index"`
	Entity         string  `json:"entity"`
	OutletName     string  `json:"outlet_name,omitempty"`
	OutletType     string  `json:"outlet_type,omitempty"`
	TotalPollution float64 `json:"total_pollution"`
}

// ClusterAggregate summarizes one non-noise cluster.
type ClusterAggregate struct {
	ID             int       `json:"id"`
	Count          int       `json:"count"`
	TotalPollution float64   `json:"total_pollution"`
	Centroid       orb.Point `json:"centroid"`
	// SpreadKm is the largest great-circle distance from the centroid to a member.
	SpreadKm float64 `json:"spread_km"`
	// Members are record indices in input order.
	Members []int    `json:"members"`
	Top     []Member `json:"top"`
}

// ByEntity groups records by entity name and sorts the groups by descending
// total pollution. Groups with equal totals keep first-appearance order.
func ByEntity(records []record.DischargeRecord) []EntityAggregate {
	type acc struct {
		agg   EntityAggregate
		types map[string]int
		order []string // outlet types in first-seen order
	}
	var (
		groups = map[string]*acc{}
		order  []string
	)
	for i := range records {
		r := &records[i]
		a := groups[r.Entity]
		if a == nil {
			a = &acc{agg: EntityAggregate{Entity: r.Entity}, types: map[string]int{}}
			groups[r.Entity] = a
			order = append(order, r.Entity)
		}
		a.agg.Records++
		a.agg.TotalPollution += r.TotalPollution()
		a.agg.Wastewater += r.Wastewater.OrZero()
		a.agg.Members = append(a.agg.Members, r.Index)
		if r.OutletType != "" {
			if _, seen := a.types[r.OutletType]; !seen {
				a.order = append(a.order, r.OutletType)
			}
			a.types[r.OutletType]++
		}
	}

	out := make([]EntityAggregate, 0, len(order))
	for _, name := range order {
		a := groups[name]
		a.agg.DominantType = mode(a.order, a.types)
		out = append(out, a.agg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalPollution > out[j].TotalPollution
	})
	return out
}

// mode returns the most frequent value, preferring earlier values on ties.
func mode(order []string, counts map[string]int) string {
	best, bestN := "", 0
	for _, v := range order {
		if counts[v] > bestN {
			best, bestN = v, counts[v]
		}
	}
	return best
}

// ByCluster summarizes every non-noise cluster, sorted by id. Each cluster
// reports up to topN members ranked by descending total pollution; equal
// totals keep input order. A negative topN is treated as 0.
func ByCluster(records []record.DischargeRecord, topN int) []ClusterAggregate {
	if topN < 0 {
		topN = 0
	}
	members := map[int][]int{} // cluster id -> positions in records
	for i := range records {
		if c := records[i].Cluster; c >= 0 {
			members[c] = append(members[c], i)
		}
	}
	ids := make([]int, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]ClusterAggregate, 0, len(ids))
	for _, id := range ids {
		out = append(out, summarize(records, id, members[id], topN))
	}
	return out
}

func summarize(records []record.DischargeRecord, id int, pos []int, topN int) ClusterAggregate {
	ca := ClusterAggregate{ID: id, Count: len(pos), Members: make([]int, 0, len(pos))}
	ranked := make([]Member, 0, len(pos))
	var lons, lats []float64
	for _, p := range pos {
		r := &records[p]
		total := r.TotalPollution()
		ca.TotalPollution += total
		ca.Members = append(ca.Members, r.Index)
		ranked = append(ranked, Member{
			Index:          r.Index,
			Entity:         r.Entity,
			OutletName:     r.OutletName,
			OutletType:     r.OutletType,
			TotalPollution: total,
		})
		// Only records with both coordinates take part in the geometry.
		if r.HasCoordinates() {
			lon, _ := r.Longitude.Get()
			lat, _ := r.Latitude.Get()
			lons = append(lons, lon)
			lats = append(lats, lat)
		}
	}
	if len(lons) > 0 {
		ca.Centroid = orb.Point{stat.Mean(lons, nil), stat.Mean(lats, nil)}
		for i := range lons {
			if d := geo.Distance(ca.Centroid, orb.Point{lons[i], lats[i]}) / 1000; d > ca.SpreadKm {
				ca.SpreadKm = d
			}
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalPollution > ranked[j].TotalPollution
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	ca.Top = ranked
	return ca
}
