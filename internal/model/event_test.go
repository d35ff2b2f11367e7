package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestSome_RejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if Some(v).Valid {
			t.Errorf("Some(%v) should be invalid", v)
		}
	}
	if m := Some(0); !m.Valid || m.Float64 != 0 {
		t.Errorf("Some(0) = %+v", m)
	}
}

func TestInstant_BeforeNullsLast(t *testing.T) {
	a := At(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	b := At(a.Time.Add(time.Hour))
	null := Instant{}

	tests := []struct {
		x, y Instant
		want bool
	}{
		{a, b, true},
		{b, a, false},
		{a, null, true},
		{null, a, false},
		{null, null, false},
	}
	for i, tt := range tests {
		if got := tt.x.Before(tt.y); got != tt.want {
			t.Errorf("case %d: Before = %v, want %v", i, got, tt.want)
		}
	}
}

func TestProductionEvent_Derived(t *testing.T) {
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	e := ProductionEvent{LengthMm: Some(2500), Start: At(start), Finish: At(start.Add(90 * time.Minute))}

	if m := e.Meters(); m != Some(2.5) {
		t.Errorf("Meters = %+v", m)
	}
	if d, ok := e.Duration(); !ok || d != 90*time.Minute {
		t.Errorf("Duration = %v, %v", d, ok)
	}

	e.Finish = At(start.Add(-time.Minute))
	if _, ok := e.Duration(); ok {
		t.Error("finish before start should have no duration")
	}
	if (ProductionEvent{}).Meters().Valid {
		t.Error("missing length should give invalid meters")
	}
}

func TestJSON_Nulls(t *testing.T) {
	b, err := json.Marshal(ProductionEvent{ElementID: "E1", RateMetersPerHour: Some(80)})
	if err != nil {
		t.Fatal(err)
	}

	var back map[string]any
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back["length_mm"] != nil || back["start"] != nil {
		t.Errorf("invalid fields should be null: %s", b)
	}
	if back["rate_m_per_h"] != 80.0 {
		t.Errorf("rate = %v", back["rate_m_per_h"])
	}

	var e ProductionEvent
	if err := json.Unmarshal(b, &e); err != nil {
		t.Fatal(err)
	}
	if e.LengthMm.Valid || e.RateMetersPerHour != Some(80) {
		t.Errorf("round trip = %+v", e)
	}
}
