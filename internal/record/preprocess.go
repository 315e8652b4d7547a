package record

// Coverage reports which schema fields were not found in an input header.
type Coverage struct {
	Missing []Field
}

// Complete reports whether every field was bound to a column.
func (c Coverage) Complete() bool { return len(c.Missing) == 0 }

// Preprocessor coerces raw field values into typed records. It never fails
// and never drops a row: unparseable numbers become missing.
type Preprocessor struct {
	Schema *Schema
	Format NumberFormat
}

// NewPreprocessor returns a preprocessor using schema (default aliases if nil).
func NewPreprocessor(schema *Schema, format NumberFormat) *Preprocessor {
	if schema == nil {
		schema = NewSchema(nil)
	}
	return &Preprocessor{Schema: schema, Format: format}
}

// Record builds the typed record at position index from named raw values.
// Fields absent from raw are missing (numeric) or empty (categorical).
func (p *Preprocessor) Record(index int, raw map[Field]any) DischargeRecord {
	r := DischargeRecord{Index: index, Cluster: Noise}
	for f, v := range raw {
		if f.Numeric() {
			r.set(f, "", p.Format.Parse(v))
		} else {
			r.set(f, categorical(v), Value{})
		}
	}
	return r
}

// Table converts a header plus string rows into records, one per row, in order.
func (p *Preprocessor) Table(header []string, rows [][]string) ([]DischargeRecord, Coverage) {
	bind := p.Schema.Bind(header)
	var cov Coverage
	for _, f := range Fields() {
		if _, ok := bind[f]; !ok {
			cov.Missing = append(cov.Missing, f)
		}
	}
	out := make([]DischargeRecord, 0, len(rows))
	raw := make(map[Field]any, len(bind))
	for i, row := range rows {
		clear(raw)
		for f, col := range bind {
			if col < len(row) {
				raw[f] = row[col]
			}
		}
		out = append(out, p.Record(i, raw))
	}
	return out, cov
}
