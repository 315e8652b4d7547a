// Package pipeline runs the tracing pipeline: coordinate normalization,
// density clustering and aggregation, packaged into an immutable Result.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/KaramelBytes/outfall-cli/internal/aggregate"
	"github.com/KaramelBytes/outfall-cli/internal/cluster"
	"github.com/KaramelBytes/outfall-cli/internal/logging"
	"github.com/KaramelBytes/outfall-cli/internal/record"
	"github.com/KaramelBytes/outfall-cli/internal/spatial"
	"github.com/google/uuid"
)

// Params configures one pipeline run.
type Params struct {
	Cluster cluster.Params `json:"cluster"`
	// TopN is the number of ranked members reported per cluster.
	TopN int `json:"top_n"`
}

// DefaultParams returns eps 0.3, min_samples 3 and top_n 5.
func DefaultParams() Params {
	return Params{Cluster: cluster.DefaultParams(), TopN: aggregate.DefaultTopN}
}

// Validate returns a *ConfigError when any parameter is out of range.
func (p Params) Validate() error {
	err := p.Cluster.Validate()
	if p.TopN < 0 {
		err = joinErr(err, fmt.Errorf("top_n must be >= 0, got %d", p.TopN))
	}
	if err != nil {
		return &ConfigError{Err: err}
	}
	return nil
}

func joinErr(a, b error) error {
	if a == nil {
		return b
	}
	return fmt.Errorf("%w; %w", a, b)
}

// Pipeline is a validated, reusable pipeline configuration.
type Pipeline struct {
	params Params
	log    *slog.Logger
}

// New validates params. A nil logger discards diagnostics.
func New(params Params, log *slog.Logger) (*Pipeline, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Pipeline{params: params, log: log.With("module", "pipeline")}, nil
}

// Params returns the configuration the pipeline was built with.
func (p *Pipeline) Params() Params { return p.params }

// Run clusters and aggregates records. The input slice is not modified; the
// result holds labeled copies in the same order.
func (p *Pipeline) Run(records []record.DischargeRecord) *Result {
	runID := uuid.NewString()
	log := p.log.With("run_id", runID)

	recs := make([]record.DischargeRecord, len(records))
	copy(recs, records)
	for i := range recs {
		recs[i].Index = i
		recs[i].Cluster = record.Noise
	}

	norm := spatial.Normalize(recs)
	log.Debug("normalized coordinates",
		"included", norm.Len(),
		"excluded", len(recs)-norm.Len(),
		"lon_mean", norm.Lon.Mean, "lon_std", norm.Lon.Std,
		"lat_mean", norm.Lat.Mean, "lat_std", norm.Lat.Std)

	labels := cluster.DBSCAN(norm.Points, p.params.Cluster)
	log.Debug("clustered", "sizes", labels.Sizes(), "noise", labels.Noise())
	for k, idx := range norm.Indices {
		recs[idx].Cluster = labels[k]
	}

	res := assemble(runID, p.params, recs, norm)
	log.Info("pipeline finished",
		"records", len(recs),
		"clusters", len(res.clusters),
		"noise", res.noise,
		"excluded", res.excluded,
		"entities", len(res.entities),
		"eps", p.params.Cluster.Eps,
		"min_samples", p.params.Cluster.MinSamples)
	return res
}

// Run validates params and runs the pipeline once without logging.
func Run(records []record.DischargeRecord, params Params) (*Result, error) {
	p, err := New(params, nil)
	if err != nil {
		return nil, err
	}
	return p.Run(records), nil
}
