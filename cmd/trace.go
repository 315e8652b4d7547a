package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/outfall-cli/internal/aggregate"
	"github.com/KaramelBytes/outfall-cli/internal/cluster"
	"github.com/KaramelBytes/outfall-cli/internal/pipeline"
	"github.com/KaramelBytes/outfall-cli/internal/report"
	"github.com/KaramelBytes/outfall-cli/internal/utils"
	"github.com/spf13/cobra"
)

// Output file names written into the output directory.
const (
	reportFile  = "trace_report.md"
	resultFile  = "result.json"
	geojsonFile = "outlets.geojson"
	chartsFile  = "charts.html"
)

// traceFlags are shared by trace and trace-batch.
type traceFlags struct {
	input       inputFlags
	eps         float64
	minSamples  int
	topN        int
	topEntities int
	outputDir   string
	title       string
	noCharts    bool
	noGeoJSON   bool
	assetsHost  string
	stdout      bool
}

func (tf *traceFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&tf.eps, "eps", cluster.DefaultEps, "DBSCAN neighborhood radius in normalized units (> 0)")
	f.IntVar(&tf.minSamples, "min-samples", cluster.DefaultMinSamples, "DBSCAN minimum neighborhood size including the point itself (>= 1)")
	f.IntVar(&tf.topN, "top-n", aggregate.DefaultTopN, "top outlets listed per cluster")
	f.IntVar(&tf.topEntities, "top-entities", report.DefaultTopEntities, "entities listed in the report ranking")
	f.StringVarP(&tf.outputDir, "output-dir", "o", "", "directory for report outputs (default from config)")
	f.StringVar(&tf.title, "title", "", "report title")
	f.BoolVar(&tf.noCharts, "no-charts", false, "skip the HTML chart page")
	f.BoolVar(&tf.noGeoJSON, "no-geojson", false, "skip the GeoJSON outlet map")
	f.StringVar(&tf.assetsHost, "assets-host", "", "override where chart scripts are loaded from")
	f.BoolVar(&tf.stdout, "stdout", false, "also print the Markdown report to stdout")
	tf.input.register(f)
}

// settings is the effective trace configuration after flags override config.
type settings struct {
	params      pipeline.Params
	topEntities int
	outputDir   string
	title       string
	charts      bool
	geojson     bool
	assetsHost  string
}

func (tf *traceFlags) resolve(cmd *cobra.Command) settings {
	f := cmd.Flags()
	s := settings{
		params: pipeline.Params{
			Cluster: cluster.Params{Eps: cfg.Eps, MinSamples: cfg.MinSamples},
			TopN:    cfg.TopN,
		},
		topEntities: cfg.TopEntities,
		outputDir:   cfg.OutputDir,
		title:       cfg.ReportTitle,
		charts:      cfg.Charts,
		geojson:     cfg.GeoJSON,
		assetsHost:  tf.assetsHost,
	}
	if f.Changed("eps") {
		s.params.Cluster.Eps = tf.eps
	}
	if f.Changed("min-samples") {
		s.params.Cluster.MinSamples = tf.minSamples
	}
	if f.Changed("top-n") {
		s.params.TopN = tf.topN
	}
	if f.Changed("top-entities") {
		s.topEntities = tf.topEntities
	}
	if f.Changed("output-dir") {
		s.outputDir = tf.outputDir
	}
	if f.Changed("title") {
		s.title = tf.title
	}
	if tf.noCharts {
		s.charts = false
	}
	if tf.noGeoJSON {
		s.geojson = false
	}
	return s
}

// traced is the outcome of one traced input.
type traced struct {
	result  *pipeline.Result
	report  string
	written []string
}

// traceFile runs the full trace for one input and writes its outputs into dir.
func traceFile(cmd *cobra.Command, p *pipeline.Pipeline, s settings, in *inputFlags, path, dir string, quiet bool) (*traced, error) {
	ld, err := loadRecords(cmd, path, in, quiet)
	if err != nil {
		return nil, err
	}
	res := p.Run(ld.records)

	if err := utils.EnsureDir(dir); err != nil {
		return nil, err
	}
	var written []string
	write := func(name string, data []byte) error {
		out := filepath.Join(dir, name)
		if err := utils.SafeWriteFile(out, data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, out)
		return nil
	}

	md := report.Markdown(res, report.Options{Title: s.title, Source: filepath.Base(path), TopEntities: s.topEntities})
	if err := write(reportFile, []byte(md)); err != nil {
		return nil, err
	}
	js, err := utils.PrettyJSON(res)
	if err != nil {
		return nil, err
	}
	if err := write(resultFile, js); err != nil {
		return nil, err
	}
	if s.geojson {
		gj, err := json.Marshal(report.GeoJSON(res))
		if err != nil {
			return nil, fmt.Errorf("marshal geojson: %w", err)
		}
		if err := write(geojsonFile, gj); err != nil {
			return nil, err
		}
	}
	if s.charts {
		var buf bytes.Buffer
		if err := report.Charts(res, report.ChartOptions{Title: s.title, TopEntities: s.topEntities, AssetsHost: s.assetsHost}, &buf); err != nil {
			return nil, err
		}
		if err := write(chartsFile, buf.Bytes()); err != nil {
			return nil, err
		}
	}
	return &traced{result: res, report: md, written: written}, nil
}

var traceOpts traceFlags

var traceCmd = &cobra.Command{
	Use:   "trace <file>",
	Short: "Cluster discharge outlets by location and write a pollution trace report",
	Long: `Reads a discharge-outlet inventory (CSV/TSV/XLSX), normalizes outlet coordinates,
clusters them with DBSCAN and ranks entities and clusters by total pollutant load.

Outputs written to the output directory:
  trace_report.md   Markdown report
  result.json       full result with per-record labels
  outlets.geojson   outlets and cluster centroids (unless --no-geojson)
  charts.html       scatter, histogram and ranking charts (unless --no-charts)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := traceOpts.resolve(cmd)
		p, err := pipeline.New(s.params, logger)
		if err != nil {
			return err
		}
		tr, err := traceFile(cmd, p, s, &traceOpts.input, args[0], s.outputDir, false)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if traceOpts.stdout {
			fmt.Fprintln(out, tr.report)
		}
		res := tr.result
		fmt.Fprintf(out, "✓ Traced %d outlets: %d clusters, %d noise (%d without coordinates)\n",
			len(res.Labels()), res.ClusterCount(), res.NoiseCount(), res.ExcludedCount())
		for _, w := range tr.written {
			fmt.Fprintf(out, "✓ Wrote %s\n", w)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceOpts.register(traceCmd)
}
