package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/KaramelBytes/outfall-cli/internal/config"
	"github.com/KaramelBytes/outfall-cli/internal/ingest"
	"github.com/KaramelBytes/outfall-cli/internal/record"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// inputFlags are the table-reading flags shared by trace, trace-batch and profile.
type inputFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
	maxRows    int
}

func (in *inputFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&in.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	fs.StringVar(&in.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	fs.StringVar(&in.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	fs.StringVar(&in.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	fs.IntVar(&in.sheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	fs.IntVar(&in.maxRows, "max-rows", 0, "maximum rows to read (0 = unlimited)")
}

// resolve merges changed flags over configuration values.
func (in *inputFlags) resolve(cmd *cobra.Command, c *cfgpkg.Global) (ingest.Options, record.NumberFormat, error) {
	f := cmd.Flags()
	delim := c.Delimiter
	if f.Changed("delimiter") {
		delim = in.delimiter
	}
	dec := c.DecimalSeparator
	if f.Changed("decimal") {
		dec = in.decimal
	}
	thou := c.ThousandsSeparator
	if f.Changed("thousands") {
		thou = in.thousands
	}
	opt := ingest.Options{SheetName: c.SheetName, SheetIndex: c.SheetIndex, MaxRows: c.MaxRows}
	if f.Changed("sheet-name") {
		opt.SheetName = in.sheetName
	}
	if f.Changed("sheet-index") {
		opt.SheetIndex = in.sheetIndex
	}
	if f.Changed("max-rows") {
		opt.MaxRows = in.maxRows
	}

	var nf record.NumberFormat
	var err error
	if opt.Delimiter, err = parseDelimiter(delim); err != nil {
		return opt, nf, err
	}
	if nf.DecimalSeparator, err = parseDecimal(dec); err != nil {
		return opt, nf, err
	}
	if nf.ThousandsSeparator, err = parseThousands(thou); err != nil {
		return opt, nf, err
	}
	return opt, nf, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab", `\t`:
		return '\t', nil
	case ";":
		return ';', nil
	case "|":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported --delimiter: %s", s)
}

func parseDecimal(s string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ",", "comma":
		return ',', nil
	case ".", "dot":
		return '.', nil
	case "":
		return 0, nil
	}
	return 0, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", s)
}

func parseThousands(s string) (rune, error) {
	if s == " " {
		return ' ', nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ",", "comma":
		return ',', nil
	case ".", "dot":
		return '.', nil
	case "space":
		return ' ', nil
	case "":
		return 0, nil
	}
	return 0, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", s)
}

// loaded is one input file turned into typed records.
type loaded struct {
	table   *ingest.Table
	records []record.DischargeRecord
}

// loadRecords reads path and preprocesses its rows with the configured
// column aliases. Missing columns and truncation are reported as warnings.
func loadRecords(cmd *cobra.Command, path string, in *inputFlags, quiet bool) (*loaded, error) {
	opt, nf, err := in.resolve(cmd, cfg)
	if err != nil {
		return nil, err
	}
	tbl, err := ingest.Read(path, opt)
	if err != nil {
		return nil, err
	}
	pre := record.NewPreprocessor(record.NewSchema(cfg.Columns), nf)
	recs, cov := pre.Table(tbl.Header, tbl.Rows)

	log := logger.With("module", "ingest", "file", tbl.Name)
	log.Info("table loaded", "rows", tbl.Total, "processed", tbl.Processed, "columns", len(tbl.Header))
	if !cov.Complete() {
		names := make([]string, len(cov.Missing))
		for i, f := range cov.Missing {
			names[i] = f.String()
		}
		log.Warn("columns not found", "fields", names)
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "⚠ %s: columns not found for %s\n", tbl.Name, strings.Join(names, ", "))
		}
	}
	if tbl.Truncated() && !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "⚠ %s: processed only %d/%d rows due to --max-rows\n", tbl.Name, tbl.Processed, tbl.Total)
	}
	return &loaded{table: tbl, records: recs}, nil
}
