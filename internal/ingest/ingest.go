// Package ingest reads outlet inventories from CSV/TSV files and Excel
// workbooks into a plain header-plus-rows table.
package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Options controls how a table is read.
type Options struct {
	// Delimiter for CSV. If 0, sniffed from the extension and the header line.
	Delimiter rune
	// SheetName selects a workbook sheet by name (case-insensitive).
	SheetName string
	// SheetIndex selects a workbook sheet by 1-based position when SheetName is empty.
	SheetIndex int
	// MaxRows limits rows kept; 0 means unlimited.
	MaxRows int
}

// Table is a header row plus data rows. Every row has len(Header) cells.
type Table struct {
	Name      string
	Header    []string
	Rows      [][]string
	Total     int // data rows seen in the source
	Processed int // data rows kept in Rows
}

// Truncated reports whether MaxRows dropped rows.
func (t *Table) Truncated() bool { return t.Processed < t.Total }

// Read loads path, choosing the reader by extension.
func Read(path string, opt Options) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, opt)
	case ".csv", ".tsv", ".txt":
		return ReadCSV(path, opt)
	default:
		return nil, fmt.Errorf("unsupported file type %q (want .csv, .tsv or .xlsx)", filepath.Ext(path))
	}
}

// ReadCSV reads a delimited text file.
func ReadCSV(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path, br)
	}
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.Comma = delim

	tbl := &Table{Name: filepath.Base(path)}
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return tbl, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	tbl.Header = trimAll(header)

	acc := newAccumulator(tbl, opt.MaxRows)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", tbl.Total+2, err)
		}
		acc.add(row)
	}
	return tbl, nil
}

// sniffDelimiter picks tab for .tsv files, otherwise the most frequent of
// ',', ';' and tab in the first line. Comma wins ties.
func sniffDelimiter(path string, br *bufio.Reader) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	line, _ := br.Peek(4096)
	if i := strings.IndexByte(string(line), '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestN := ',', strings.Count(string(line), ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(string(line), string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// accumulator appends rows to a table, padding short rows and honoring a row limit.
type accumulator struct {
	tbl     *Table
	maxRows int
}

func newAccumulator(tbl *Table, maxRows int) *accumulator {
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	return &accumulator{tbl: tbl, maxRows: maxRows}
}

func (a *accumulator) add(row []string) {
	if blank(row) {
		return
	}
	a.tbl.Total++
	if a.tbl.Processed >= a.maxRows {
		return
	}
	ncol := len(a.tbl.Header)
	out := make([]string, ncol)
	for j := 0; j < ncol && j < len(row); j++ {
		out[j] = strings.TrimSpace(row[j])
	}
	a.tbl.Rows = append(a.tbl.Rows, out)
	a.tbl.Processed++
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
