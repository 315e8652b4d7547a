package report

import (
	"github.com/KaramelBytes/outfall-cli/internal/pipeline"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeoJSON builds a feature collection with one point per outlet that has
// coordinates and one centroid point per cluster. Outlet features carry
// kind "outlet", centroids kind "centroid".
func GeoJSON(res *pipeline.Result) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range res.Records() {
		if !r.HasCoordinates() {
			continue
		}
		lon, _ := r.Longitude.Get()
		lat, _ := r.Latitude.Get()
		f := geojson.NewFeature(orb.Point{lon, lat})
		f.Properties["kind"] = "outlet"
		f.Properties["index"] = r.Index
		f.Properties["entity"] = r.Entity
		f.Properties["outlet"] = r.OutletName
		f.Properties["type"] = r.OutletType
		f.Properties["total_pollution"] = r.TotalPollution()
		f.Properties["cluster"] = r.Cluster
		fc.Append(f)
	}
	for _, c := range res.Clusters() {
		f := geojson.NewFeature(c.Centroid)
		f.Properties["kind"] = "centroid"
		f.Properties["cluster"] = c.ID
		f.Properties["count"] = c.Count
		f.Properties["total_pollution"] = c.TotalPollution
		f.Properties["spread_km"] = c.SpreadKm
		fc.Append(f)
	}
	return fc
}
