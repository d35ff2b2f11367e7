// Package jobcode splits MES job codes into type, project and element ids.
//
// A job code looks like "WELD_P100_X_E42": the first segment is the
// station/type tag, the second the project, the last the element. Segments
// in between are ignored. Decomposition never fails; missing parts are
// filled with sentinel values.
package jobcode

import "strings"

// Defaults of the standard MES export.
const (
	DefaultSeparator  = "_"
	DefaultUnassigned = "unassigned"
	DefaultUnknown    = "unknown"
)

// Parts is the decomposition of one job code.
type Parts struct {
	Raw       string
	TypeTag   string
	ProjectID string
	ElementID string
}

// Decomposer splits job codes. Empty fields fall back to the defaults.
type Decomposer struct {
	Separator  string
	Unassigned string
	Unknown    string
}

// Default returns a Decomposer using "_" and the default sentinels.
func Default() Decomposer {
	return Decomposer{
		Separator:  DefaultSeparator,
		Unassigned: DefaultUnassigned,
		Unknown:    DefaultUnknown,
	}
}

// Decompose splits job. It is deterministic and total.
func (d Decomposer) Decompose(job string) Parts {
	sep := or(d.Separator, DefaultSeparator)
	raw := strings.TrimSpace(job)
	segments := strings.Split(raw, sep)

	p := Parts{
		Raw:       raw,
		TypeTag:   segments[0],
		ProjectID: or(d.Unassigned, DefaultUnassigned),
		ElementID: or(d.Unknown, DefaultUnknown),
	}
	if len(segments) >= 2 {
		p.ProjectID = segments[1]
		p.ElementID = segments[len(segments)-1]
	}
	return p
}

// Decompose splits job with the default Decomposer.
func Decompose(job string) Parts {
	return Default().Decompose(job)
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
