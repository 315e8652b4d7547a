package record

import (
	"strings"
	"unicode"
)

// DefaultAliases lists the header names recognized for each field. The first
// entries are the headers of the source-region outlet inventory spreadsheets.
func DefaultAliases() map[Field][]string {
	return map[Field][]string{
		Entity:        {"设置单位名称", "entity", "company", "owner"},
		OutletName:    {"排污口名称", "outlet_name", "outlet"},
		OutletType:    {"排污口类型名称", "排污口类型", "outlet_type", "type"},
		Feature:       {"排水特征-主要特征", "排水特征", "feature", "discharge_feature"},
		Province:      {"省", "province"},
		DischargeMode: {"入河方式", "discharge_mode"},
		Longitude:     {"经度", "地理位置经度", "longitude", "lon", "lng"},
		Latitude:      {"纬度", "地理位置纬度", "latitude", "lat"},
		Wastewater:    {"入河废污水量(万吨年)", "入河废污水量", "wastewater", "wastewater_volume"},
		PrimaryLoad:   {"入河主要污染物量（吨年）", "入河主要污染物量", "primary_load", "primary_pollutant"},
		Ammonia:       {"氨氮入河量（吨年）", "氨氮入河量", "ammonia", "ammonia_nitrogen"},
		Phosphorus:    {"总磷入河量（吨年）", "总磷入河量", "phosphorus", "total_phosphorus"},
		Nitrogen:      {"总氮入河量（吨年）", "总氮入河量", "nitrogen", "total_nitrogen"},
	}
}

// Schema resolves spreadsheet headers to record fields.
type Schema struct {
	aliases map[string]Field
}

// NewSchema builds a schema from the default aliases, with overrides replacing
// the alias list of the fields they name. Unknown override keys are ignored.
func NewSchema(overrides map[string][]string) *Schema {
	all := DefaultAliases()
	for key, names := range overrides {
		f, ok := LookupField(strings.ToLower(strings.TrimSpace(key)))
		if !ok || len(names) == 0 {
			continue
		}
		all[f] = names
	}
	s := &Schema{aliases: map[string]Field{}}
	// Iterate in field order so an alias claimed by two fields resolves deterministically.
	for _, f := range Fields() {
		for _, name := range all[f] {
			k := normalizeHeader(name)
			if _, taken := s.aliases[k]; !taken {
				s.aliases[k] = f
			}
		}
	}
	return s
}

// Resolve maps a header name to a field.
func (s *Schema) Resolve(header string) (Field, bool) {
	f, ok := s.aliases[normalizeHeader(header)]
	return f, ok
}

// Bind maps each field to the first header column that resolves to it.
func (s *Schema) Bind(header []string) map[Field]int {
	idx := make(map[Field]int)
	for i, h := range header {
		f, ok := s.Resolve(h)
		if !ok {
			continue
		}
		if _, dup := idx[f]; !dup {
			idx[f] = i
		}
	}
	return idx
}

var bracketFold = strings.NewReplacer("（", "(", "）", ")", "【", "[", "】", "]", "－", "-")

func normalizeHeader(h string) string {
	h = bracketFold.Replace(h)
	var b strings.Builder
	for _, r := range h {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
