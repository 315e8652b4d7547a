package record

import "math"

// Noise is the cluster label for records that belong to no cluster, including
// records excluded from clustering because a coordinate is missing.
const Noise = -1

// Field identifies one column of the discharge outlet schema.
type Field int

const (
	Entity Field = iota
	OutletName
	OutletType
	Feature
	Province
	DischargeMode
	Longitude
	Latitude
	Wastewater
	PrimaryLoad
	Ammonia
	Phosphorus
	Nitrogen

	numFields
)

var fieldNames = [numFields]string{
	Entity:        "entity",
	OutletName:    "outlet_name",
	OutletType:    "outlet_type",
	Feature:       "feature",
	Province:      "province",
	DischargeMode: "discharge_mode",
	Longitude:     "longitude",
	Latitude:      "latitude",
	Wastewater:    "wastewater",
	PrimaryLoad:   "primary_load",
	Ammonia:       "ammonia",
	Phosphorus:    "phosphorus",
	Nitrogen:      "nitrogen",
}

// String returns the snake_case key used in config files and exports.
func (f Field) String() string {
	if f < 0 || f >= numFields {
		return "unknown"
	}
	return fieldNames[f]
}

// Numeric reports whether the field carries a floating point measurement.
func (f Field) Numeric() bool { return f >= Longitude && f < numFields }

// Fields returns every schema field in declaration order.
func Fields() []Field {
	out := make([]Field, 0, numFields)
	for f := Field(0); f < numFields; f++ {
		out = append(out, f)
	}
	return out
}

// LookupField resolves a config key such as "ammonia" to its Field.
func LookupField(key string) (Field, bool) {
	for f := Field(0); f < numFields; f++ {
		if fieldNames[f] == key {
			return f, true
		}
	}
	return 0, false
}

// Value is an optional float64. The zero Value is missing.
type Value struct {
	v  float64
	ok bool
}

// Some wraps x. NaN and infinities are stored as missing.
func Some(x float64) Value {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return Value{}
	}
	return Value{v: x, ok: true}
}

// Missing returns the missing marker.
func Missing() Value { return Value{} }

// Get returns the wrapped number and whether it is present.
func (v Value) Get() (float64, bool) { return v.v, v.ok }

// Valid reports whether a number is present.
func (v Value) Valid() bool { return v.ok }

// OrZero returns the number, or 0 when missing.
func (v Value) OrZero() float64 {
	if !v.ok {
		return 0
	}
	return v.v
}

// DischargeRecord is one outlet observation.
type DischargeRecord struct {
	// Index is the position of the row in the input sequence.
	Index int

	Entity        string
	OutletName    string
	OutletType    string
	Feature       string
	Province      string
	DischargeMode string

	Longitude Value
	Latitude  Value

	Wastewater  Value
	PrimaryLoad Value
	Ammonia     Value
	Phosphorus  Value
	Nitrogen    Value

	// Cluster is assigned by the clustering engine; Noise until then.
	Cluster int
}

// TotalPollution sums the four pollutant loads, counting missing loads as 0.
// The underlying fields keep their missing status.
func (r *DischargeRecord) TotalPollution() float64 {
	return r.PrimaryLoad.OrZero() + r.Ammonia.OrZero() + r.Phosphorus.OrZero() + r.Nitrogen.OrZero()
}

// HasCoordinates reports whether both longitude and latitude are present.
func (r *DischargeRecord) HasCoordinates() bool {
	return r.Longitude.Valid() && r.Latitude.Valid()
}

// Category returns the categorical value stored for f, or "" for numeric fields.
func (r *DischargeRecord) Category(f Field) string {
	switch f {
	case Entity:
		return r.Entity
	case OutletName:
		return r.OutletName
	case OutletType:
		return r.OutletType
	case Feature:
		return r.Feature
	case Province:
		return r.Province
	case DischargeMode:
		return r.DischargeMode
	}
	return ""
}

// Number returns the numeric value stored for f; categorical fields are missing.
func (r *DischargeRecord) Number(f Field) Value {
	switch f {
	case Longitude:
		return r.Longitude
	case Latitude:
		return r.Latitude
	case Wastewater:
		return r.Wastewater
	case PrimaryLoad:
		return r.PrimaryLoad
	case Ammonia:
		return r.Ammonia
	case Phosphorus:
		return r.Phosphorus
	case Nitrogen:
		return r.Nitrogen
	}
	return Missing()
}

func (r *DischargeRecord) set(f Field, cat string, num Value) {
	switch f {
	case Entity:
		r.Entity = cat
	case OutletName:
		r.OutletName = cat
	case OutletType:
		r.OutletType = cat
	case Feature:
		r.Feature = cat
	case Province:
		r.Province = cat
	case DischargeMode:
		r.DischargeMode = cat
	case Longitude:
		r.Longitude = num
	case Latitude:
		r.Latitude = num
	case Wastewater:
		r.Wastewater = num
	case PrimaryLoad:
		r.PrimaryLoad = num
	case Ammonia:
		r.Ammonia = num
	case Phosphorus:
		r.Phosphorus = num
	case Nitrogen:
		r.Nitrogen = num
	}
}
