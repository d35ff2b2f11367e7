package ingest

import (
	"strings"

	mferrors "github.com/mesflow/mesflow/pkg/errors"
)

// Column names a logical input column.
type Column int

const (
	ColJob Column = iota
	ColLength
	ColRate
	ColUnit
	ColStart
	ColFinish
	numColumns
)

func (c Column) String() string {
	switch c {
	case ColJob:
		return "job"
	case ColLength:
		return "length"
	case ColRate:
		return "rate"
	case ColUnit:
		return "unit"
	case ColStart:
		return "start"
	case ColFinish:
		return "finish"
	default:
		return "unknown"
	}
}

// Schema maps logical columns to header names in the export.
type Schema struct {
	Job    string `yaml:"job" validate:"required"`
	Length string `yaml:"length"`
	Rate   string `yaml:"rate"`
	Unit   string `yaml:"unit"`
	Start  string `yaml:"start"`
	Finish string `yaml:"finish"`
}

// DefaultSchema returns the header names of the standard MES export.
func DefaultSchema() Schema {
	return Schema{
		Job:    "Job",
		Length: "Length",
		Rate:   "Rate (Server)",
		Unit:   "Unit",
		Start:  "Start (Server)",
		Finish: "Finish (Server)",
	}
}

func (s Schema) name(c Column) string {
	switch c {
	case ColJob:
		return s.Job
	case ColLength:
		return s.Length
	case ColRate:
		return s.Rate
	case ColUnit:
		return s.Unit
	case ColStart:
		return s.Start
	case ColFinish:
		return s.Finish
	default:
		return ""
	}
}

// Columns is the capability set produced once at ingestion: which logical
// columns the export carries and where. Later stages consult it instead of
// probing headers themselves.
type Columns struct {
	index [numColumns]int
}

// Has reports whether the export carries c.
func (c Columns) Has(col Column) bool {
	return c.index[col] >= 0
}

// Index returns the field position of col, or -1.
func (c Columns) Index(col Column) int {
	return c.index[col]
}

// Available lists the logical columns present, in Column order.
func (c Columns) Available() []Column {
	var out []Column
	for col := Column(0); col < numColumns; col++ {
		if c.Has(col) {
			out = append(out, col)
		}
	}
	return out
}

// Missing lists the logical columns absent from the export.
func (c Columns) Missing() []Column {
	var out []Column
	for col := Column(0); col < numColumns; col++ {
		if !c.Has(col) {
			out = append(out, col)
		}
	}
	return out
}

// Resolve matches header against the schema. Exact (trimmed) names win;
// otherwise a case-insensitive match is accepted. A missing Job column is
// fatal; every other column is optional.
func (s Schema) Resolve(header []string) (Columns, error) {
	var cols Columns
	for col := Column(0); col < numColumns; col++ {
		cols.index[col] = find(header, s.name(col))
	}
	if !cols.Has(ColJob) {
		return cols, mferrors.MissingColumn(s.Job, header)
	}
	return cols, nil
}

func find(header []string, name string) int {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1
	}
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}
