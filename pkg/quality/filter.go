// Package quality decides which production events are plausible enough to
// enter the dataset.
//
// Length drives volume metrics and is mandatory: a row without a positive
// length is rejected. Rate drives speed metrics and is optional: an
// implausible rate is nulled so the row still counts toward volume.
package quality

import (
	"fmt"

	"github.com/mesflow/mesflow/internal/model"
)

// DefaultMaxPlausibleRate is the fastest believable line speed in m/h.
const DefaultMaxPlausibleRate = 150.0

// Thresholds configure the filter.
type Thresholds struct {
	// MaxPlausibleRate is the rate ceiling in m/h; faster readings are
	// measurement errors.
	MaxPlausibleRate float64 `yaml:"max_plausible_rate" validate:"gt=0"`

	// MinLength is the exclusive lower bound for LengthMm.
	MinLength float64 `yaml:"min_length" validate:"gte=0"`
}

// DefaultThresholds returns the standard limits.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxPlausibleRate: DefaultMaxPlausibleRate, MinLength: 0}
}

// Verdict is the filter's decision for one candidate.
type Verdict int

const (
	Accept Verdict = iota
	// NullRate keeps the row with its rate removed.
	NullRate
	// Reject drops the row.
	Reject
)

func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case NullRate:
		return "null-rate"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Filter applies Thresholds to candidate events.
type Filter struct {
	Thresholds Thresholds

	// RequireLength enables the length rejection rule. It is switched off
	// when the export carries no Length column at all, so such exports keep
	// their rows with a null length.
	RequireLength bool
}

// New returns a filter that requires a length.
func New(t Thresholds) Filter {
	return Filter{Thresholds: t, RequireLength: true}
}

// Apply returns the event as it may enter the dataset and the verdict.
// A rejected event is returned unchanged and must be discarded.
func (f Filter) Apply(e model.ProductionEvent) (model.ProductionEvent, Verdict) {
	if f.RequireLength && (!e.LengthMm.Valid || e.LengthMm.Float64 <= f.Thresholds.MinLength) {
		return e, Reject
	}
	if e.LengthMm.Valid && e.LengthMm.Float64 < 0 {
		e.LengthMm = model.Invalid
	}

	if e.RateMetersPerHour.Valid {
		r := e.RateMetersPerHour.Float64
		if r < 0 || r > f.maxRate() {
			e.RateMetersPerHour = model.Invalid
			return e, NullRate
		}
	}
	return e, Accept
}

func (f Filter) maxRate() float64 {
	if f.Thresholds.MaxPlausibleRate <= 0 {
		return DefaultMaxPlausibleRate
	}
	return f.Thresholds.MaxPlausibleRate
}
