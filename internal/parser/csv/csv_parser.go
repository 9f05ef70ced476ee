// Package csv reads and writes delimited text datasets. Source exports carry a
// fixed-size preamble before the header row, so the reader skips a configured
// number of physical lines before handing the rest to encoding/csv.
package csv

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"clinicianmart/internal/dataset"
)

// DefaultSkipLines is the preamble length of the clinician/provider exports.
const DefaultSkipLines = 4

// ErrNoHeader is returned when the input ends before the header row.
var ErrNoHeader = errors.New("csv: missing header row")

// Options configures the reader. The zero value reads a plain comma-separated
// file with a header on the first line.
type Options struct {
	// SkipLines is the number of physical lines to discard before the header.
	SkipLines int

	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing whitespace from each value.
	TrimSpace bool

	// LazyQuotes relaxes quote handling (see encoding/csv).
	LazyQuotes bool
}

// Parser reads datasets according to Options. It holds no per-input state and
// may be reused.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// Parse implements parser.Parser.
func (p *Parser) Parse(r io.Reader, name string) (*dataset.Dataset, error) {
	return ReadDataset(r, name, p.opt)
}

// ReadDataset loads the whole input into a dataset. Every data row must have
// exactly as many fields as the header; a mismatch is reported with its line.
// Empty fields stay empty strings.
func ReadDataset(r io.Reader, name string, opt Options) (*dataset.Dataset, error) {
	br := bufio.NewReader(withoutBOM(r))
	for i := 0; i < opt.SkipLines; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("%s: %w (input ended inside %d-line preamble)", name, ErrNoHeader, opt.SkipLines)
			}
			return nil, fmt.Errorf("%s: skip preamble: %w", name, err)
		}
	}

	cr := csv.NewReader(br)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: %w", name, ErrNoHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	header = StripHeaderBOM(header)

	ds := dataset.New(name, header)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, fmt.Errorf("%s: line %d: %w", name, pe.Line+opt.SkipLines, pe.Err)
			}
			return nil, fmt.Errorf("%s: read row: %w", name, err)
		}
		row := make(dataset.Row, len(rec))
		for i, v := range rec {
			if opt.TrimSpace {
				v = strings.TrimSpace(v)
			}
			row[i] = v
		}
		if err := ds.Append(row); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// WriteDataset writes the header followed by every row. Nil values are written
// as empty fields.
func WriteDataset(w io.Writer, ds *dataset.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(ds.Columns))
	for i, r := range ds.Rows {
		for j, v := range r {
			rec[j] = dataset.String(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
