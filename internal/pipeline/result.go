package pipeline

import (
	"encoding/json"
	"slices"

	"github.com/KaramelBytes/outfall-cli/internal/aggregate"
	"github.com/KaramelBytes/outfall-cli/internal/cluster"
	"github.com/KaramelBytes/outfall-cli/internal/record"
	"github.com/KaramelBytes/outfall-cli/internal/spatial"
)

// Result is the outcome of one run. It is read-only: accessors hand out
// copies so that later layers cannot alter what another layer sees.
type Result struct {
	runID    string
	params   Params
	labels   cluster.Labels
	records  []record.DischargeRecord
	entities []aggregate.EntityAggregate
	clusters []aggregate.ClusterAggregate
	noise    int
	excluded int
	lon, lat spatial.Scale
}

func assemble(runID string, params Params, recs []record.DischargeRecord, norm spatial.Normalized) *Result {
	labels := make(cluster.Labels, len(recs))
	noise, excluded := 0, 0
	for i := range recs {
		labels[i] = recs[i].Cluster
		if labels[i] == record.Noise {
			noise++
		}
		if !recs[i].HasCoordinates() {
			excluded++
		}
	}
	return &Result{
		runID:    runID,
		params:   params,
		labels:   labels,
		records:  recs,
		entities: aggregate.ByEntity(recs),
		clusters: aggregate.ByCluster(recs, params.TopN),
		noise:    noise,
		excluded: excluded,
		lon:      norm.Lon,
		lat:      norm.Lat,
	}
}

// RunID identifies the run in logs and exported artifacts.
func (r *Result) RunID() string { return r.runID }

// Params returns the parameters the run used.
func (r *Result) Params() Params { return r.params }

// Labels returns one cluster label per input record, in input order.
// Records without coordinates are labeled noise.
func (r *Result) Labels() cluster.Labels { return slices.Clone(r.labels) }

// Records returns the labeled records in input order.
func (r *Result) Records() []record.DischargeRecord { return slices.Clone(r.records) }

// Entities returns entity aggregates sorted by descending total pollution.
func (r *Result) Entities() []aggregate.EntityAggregate {
	out := slices.Clone(r.entities)
	for i := range out {
		out[i].Members = slices.Clone(out[i].Members)
	}
	return out
}

// Clusters returns cluster aggregates sorted by id.
func (r *Result) Clusters() []aggregate.ClusterAggregate {
	out := slices.Clone(r.clusters)
	for i := range out {
		out[i].Members = slices.Clone(out[i].Members)
		out[i].Top = slices.Clone(out[i].Top)
	}
	return out
}

// ClusterCount is the number of non-noise clusters.
func (r *Result) ClusterCount() int { return len(r.clusters) }

// NoiseCount counts records labeled noise, including excluded ones.
func (r *Result) NoiseCount() int { return r.noise }

// ExcludedCount counts records left out of clustering for lack of coordinates.
func (r *Result) ExcludedCount() int { return r.excluded }

// Scale returns the longitude and latitude standardization used for clustering.
func (r *Result) Scale() (lon, lat spatial.Scale) { return r.lon, r.lat }

type resultJSON struct {
	RunID    string                       `json:"run_id"`
	Params   Params                       `json:"params"`
	Records  int                          `json:"records"`
	Noise    int                          `json:"noise"`
	Excluded int                          `json:"excluded"`
	Scale    map[string]spatial.Scale     `json:"scale"`
	Labels   cluster.Labels               `json:"labels"`
	Entities []aggregate.EntityAggregate  `json:"entities"`
	Clusters []aggregate.ClusterAggregate `json:"clusters"`
}

// MarshalJSON exports the summary view of the result. Records themselves are
// referenced by index through labels and member lists.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		RunID:    r.runID,
		Params:   r.params,
		Records:  len(r.records),
		Noise:    r.noise,
		Excluded: r.excluded,
		Scale:    map[string]spatial.Scale{"longitude": r.lon, "latitude": r.lat},
		Labels:   r.labels,
		Entities: r.entities,
		Clusters: r.clusters,
	}
	if out.Labels == nil {
		out.Labels = cluster.Labels{}
	}
	if out.Entities == nil {
		out.Entities = []aggregate.EntityAggregate{}
	}
	if out.Clusters == nil {
		out.Clusters = []aggregate.ClusterAggregate{}
	}
	return json.Marshal(out)
}
