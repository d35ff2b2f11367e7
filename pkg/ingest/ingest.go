// Package ingest reads a raw MES export into untyped records.
//
// The whole source is read once, the format and field delimiter are sniffed,
// rows whose field count disagrees with the header are dropped and counted,
// and the header is resolved against the Schema into a Columns capability
// set. Only a missing Job column fails the read.
package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	mferrors "github.com/mesflow/mesflow/pkg/errors"
)

// Source is a single input the ingestor can read from.
type Source interface {
	// Name identifies the source (path, URL); its extension hints the format.
	Name() string
	// Open returns the full contents for one read.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Format is the detected input format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXLSX
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

var xlsxMagic = []byte("PK\x03\x04")

// DetectFormat decides between delimited text and an Excel workbook from
// the name and leading bytes.
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".txt", ".tsv":
		return FormatCSV
	}
	if bytes.HasPrefix(data, xlsxMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// RawRecord is one untyped input row.
type RawRecord struct {
	// Row is the 1-based line (CSV) or sheet row (XLSX) of the record.
	Row int

	values []string
	table  *Table
}

// Field returns the raw value of a logical column, if the export has it.
func (r RawRecord) Field(col Column) (string, bool) {
	i := r.table.Columns.Index(col)
	if i < 0 || i >= len(r.values) {
		return "", false
	}
	return r.values[i], true
}

// Get returns the raw value under a header name.
func (r RawRecord) Get(name string) (string, bool) {
	for i, h := range r.table.Header {
		if h == name && i < len(r.values) {
			return r.values[i], true
		}
	}
	return "", false
}

// Map returns the record as column name -> raw string.
func (r RawRecord) Map() map[string]string {
	m := make(map[string]string, len(r.table.Header))
	for i, h := range r.table.Header {
		if i < len(r.values) {
			m[h] = r.values[i]
		}
	}
	return m
}

// Table is the ingestor's output.
type Table struct {
	Source    string
	Format    Format
	Delimiter rune
	Header    []string
	Columns   Columns
	Records   []RawRecord

	// Malformed counts rows dropped for a wrong field count or bad quoting.
	Malformed int
}

// Ingestor reads sources into Tables.
type Ingestor struct {
	Schema Schema

	// Delimiter forces the CSV separator; 0 sniffs it.
	Delimiter rune

	// Sheet selects the XLSX worksheet; empty picks the first.
	Sheet string

	// Progress, when set, wraps the source reader; size is -1 when the
	// source cannot tell.
	Progress func(r io.Reader, size int64) io.Reader

	Logger *zap.Logger
}

// New returns an Ingestor for the default MES schema.
func New() *Ingestor {
	return &Ingestor{Schema: DefaultSchema()}
}

// Read performs the one-shot read of src and decodes it.
func (in *Ingestor) Read(ctx context.Context, src Source) (*Table, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if in.Progress != nil {
		size := int64(-1)
		if s, ok := src.(interface{ Size() int64 }); ok {
			size = s.Size()
		}
		r = in.Progress(rc, size)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		if ctx.Err() != nil {
			return nil, mferrors.Wrap(ctx.Err(), mferrors.CodeContextCanceled, "read canceled")
		}
		return nil, mferrors.Wrap(err, mferrors.CodeSource, "read failed").WithContext("source", src.Name())
	}
	return in.Decode(ctx, src.Name(), data)
}

// Decode parses already-read bytes.
func (in *Ingestor) Decode(ctx context.Context, name string, data []byte) (*Table, error) {
	log := in.logger()

	t := &Table{Source: name, Format: DetectFormat(name, data)}

	var rows []row
	var err error
	switch t.Format {
	case FormatXLSX:
		rows, t.Malformed, err = decodeXLSX(ctx, data, in.Sheet)
	default:
		t.Delimiter = in.Delimiter
		if t.Delimiter == 0 {
			t.Delimiter = DetectDelimiter(data)
		}
		rows, t.Malformed, err = decodeCSV(ctx, data, t.Delimiter)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, mferrors.New(mferrors.CodeInvalidFormat, "input has no header row").WithContext("source", name)
	}

	t.Header = rows[0].values
	t.Columns, err = in.Schema.Resolve(t.Header)
	if err != nil {
		return nil, err
	}

	t.Records = make([]RawRecord, 0, len(rows)-1)
	for _, r := range rows[1:] {
		t.Records = append(t.Records, RawRecord{Row: r.line, values: r.values, table: t})
	}

	log.Debug("input decoded",
		zap.String("source", name),
		zap.Stringer("format", t.Format),
		zap.String("delimiter", string(t.Delimiter)),
		zap.Int("records", len(t.Records)),
		zap.Int("malformed", t.Malformed))
	return t, nil
}

func (in *Ingestor) logger() *zap.Logger {
	if in.Logger == nil {
		return zap.NewNop()
	}
	return in.Logger
}

type row struct {
	line   int
	values []string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeCSV returns the header followed by every row whose field count
// matches it. Rows with quoting errors or a different field count are
// counted, not returned.
func decodeCSV(ctx context.Context, data []byte, delim rune) ([]row, int, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows []row
	malformed := 0
	for n := 0; ; n++ {
		if n%4096 == 0 && ctx.Err() != nil {
			return nil, 0, mferrors.Wrap(ctx.Err(), mferrors.CodeContextCanceled, "decode canceled")
		}

		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) && len(rows) > 0 {
				malformed++
				continue
			}
			return nil, 0, mferrors.Wrap(err, mferrors.CodeInvalidFormat, "unreadable header")
		}

		line, _ := r.FieldPos(0)
		if len(rows) == 0 {
			rows = append(rows, row{line: line, values: trimAll(rec)})
			continue
		}
		if len(rec) != len(rows[0].values) {
			malformed++
			continue
		}
		rows = append(rows, row{line: line, values: rec})
	}
	return rows, malformed, nil
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

// String renders a short description for logs and CLI output.
func (t *Table) String() string {
	return fmt.Sprintf("%s (%s, %d records, %d malformed)", t.Source, t.Format, len(t.Records), t.Malformed)
}
