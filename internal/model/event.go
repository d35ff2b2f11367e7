// Package model defines core data structures for mesflow.
package model

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"time"
)

// Measure is a nullable measurement. An invalid Measure is excluded from
// every aggregate; it never stands in for zero.
type Measure struct {
	Float64 float64
	Valid   bool
}

// Some returns a valid Measure, or an invalid one if v is not finite.
func Some(v float64) Measure {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Measure{}
	}
	return Measure{Float64: v, Valid: true}
}

// Invalid is the explicit "no measurement" marker.
var Invalid = Measure{}

// Value implements driver.Valuer.
func (m Measure) Value() (driver.Value, error) {
	if !m.Valid {
		return nil, nil
	}
	return m.Float64, nil
}

// MarshalJSON renders an invalid Measure as null.
func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Float64)
}

// UnmarshalJSON accepts a number or null.
func (m *Measure) UnmarshalJSON(b []byte) error {
	var v *float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v == nil {
		*m = Invalid
		return nil
	}
	*m = Some(*v)
	return nil
}

// Instant is a nullable point in time.
type Instant struct {
	Time  time.Time
	Valid bool
}

// At returns a valid Instant.
func At(t time.Time) Instant {
	return Instant{Time: t, Valid: true}
}

// Value implements driver.Valuer.
func (i Instant) Value() (driver.Value, error) {
	if !i.Valid {
		return nil, nil
	}
	return i.Time, nil
}

// MarshalJSON renders an invalid Instant as null.
func (i Instant) MarshalJSON() ([]byte, error) {
	if !i.Valid {
		return []byte("null"), nil
	}
	return i.Time.MarshalJSON()
}

// UnmarshalJSON accepts an RFC 3339 string or null.
func (i *Instant) UnmarshalJSON(b []byte) error {
	var t *time.Time
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	if t == nil {
		*i = Instant{}
		return nil
	}
	*i = At(*t)
	return nil
}

// Before orders instants with invalid values last.
func (i Instant) Before(o Instant) bool {
	switch {
	case i.Valid && o.Valid:
		return i.Time.Before(o.Time)
	case i.Valid:
		return true
	default:
		return false
	}
}

// ProductionEvent is one cleaned visit of an element at a unit.
// Events are values; nothing in mesflow mutates one after the builder
// emits it.
type ProductionEvent struct {
	// Row is the 1-based source row the event was built from; the header
	// is row 1. It breaks ordering ties between equal start times.
	Row int `json:"row"`

	// Job is the composite identifier the ids below were decomposed from.
	Job string `json:"job"`

	ElementID string `json:"element_id"`
	ProjectID string `json:"project_id"`
	TypeTag   string `json:"type"`
	Unit      string `json:"unit"`

	Start  Instant `json:"start"`
	Finish Instant `json:"finish"`

	// LengthMm is the element length in millimeters.
	LengthMm Measure `json:"length_mm"`

	// RateMetersPerHour is the measured production speed.
	RateMetersPerHour Measure `json:"rate_m_per_h"`
}

// Meters returns the produced distance in meters.
func (e ProductionEvent) Meters() Measure {
	if !e.LengthMm.Valid {
		return Invalid
	}
	return Some(e.LengthMm.Float64 / 1000)
}

// Duration returns Finish - Start when both are known and ordered.
func (e ProductionEvent) Duration() (time.Duration, bool) {
	if !e.Start.Valid || !e.Finish.Valid || e.Finish.Time.Before(e.Start.Time) {
		return 0, false
	}
	return e.Finish.Time.Sub(e.Start.Time), true
}
