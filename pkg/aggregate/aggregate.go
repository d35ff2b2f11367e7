// Package aggregate computes grouped summaries over production events.
//
// Every function is a pure function of its input slice; nothing is cached.
// Invalid measures are excluded from sums and means and never count as
// zero. Events without a start time are left out of calendar groupings.
package aggregate

import (
	"sort"
	"time"

	"github.com/mesflow/mesflow/internal/model"
)

// Dimension names a grouping key.
type Dimension string

const (
	DimProject Dimension = "project"
	DimUnit    Dimension = "unit"
	DimType    Dimension = "type"
	DimDay     Dimension = "day"
	DimWeekday Dimension = "weekday"
	DimMonth   Dimension = "month"
)

// Dimensions lists every supported grouping.
var Dimensions = []Dimension{DimProject, DimUnit, DimType, DimDay, DimWeekday, DimMonth}

// Group is the reduction of all events sharing one key.
type Group struct {
	Key      string        `json:"key"`
	Count    int           `json:"count"`
	Elements int           `json:"elements"`
	Meters   model.Measure `json:"meters"`
	MeanRate model.Measure `json:"mean_rate"`
	// Rated is the number of events that contributed to MeanRate.
	Rated int `json:"rated"`
}

// keyFunc extracts a group key; false excludes the event.
type keyFunc func(model.ProductionEvent) (string, bool)

// By groups events along d. Unknown dimensions return nil.
func By(d Dimension, events []model.ProductionEvent) []Group {
	switch d {
	case DimProject:
		return ByProject(events)
	case DimUnit:
		return ByUnit(events)
	case DimType:
		return ByType(events)
	case DimDay:
		return ByDay(events)
	case DimWeekday:
		return ByWeekday(events)
	case DimMonth:
		return ByMonth(events)
	}
	return nil
}

// ByProject groups by project id, sorted by key.
func ByProject(events []model.ProductionEvent) []Group {
	return group(events, func(e model.ProductionEvent) (string, bool) { return e.ProjectID, true }, nil)
}

// ByUnit groups by unit name, sorted by key.
func ByUnit(events []model.ProductionEvent) []Group {
	return group(events, func(e model.ProductionEvent) (string, bool) { return e.Unit, true }, nil)
}

// ByType groups by job type tag, sorted by key.
func ByType(events []model.ProductionEvent) []Group {
	return group(events, func(e model.ProductionEvent) (string, bool) { return e.TypeTag, true }, nil)
}

// ByDay groups by calendar day of Start (YYYY-MM-DD), chronologically.
func ByDay(events []model.ProductionEvent) []Group {
	return group(events, startKey("2006-01-02"), nil)
}

// ByMonth groups by calendar month of Start (YYYY-MM), chronologically.
func ByMonth(events []model.ProductionEvent) []Group {
	return group(events, startKey("2006-01"), nil)
}

// ByWeekday groups by day of week of Start, Monday first.
func ByWeekday(events []model.ProductionEvent) []Group {
	rank := make(map[string]int, 7)
	for i := 0; i < 7; i++ {
		rank[time.Weekday((i+1)%7).String()] = i
	}
	return group(events, func(e model.ProductionEvent) (string, bool) {
		if !e.Start.Valid {
			return "", false
		}
		return e.Start.Time.Weekday().String(), true
	}, func(a, b string) bool { return rank[a] < rank[b] })
}

func startKey(layout string) keyFunc {
	return func(e model.ProductionEvent) (string, bool) {
		if !e.Start.Valid {
			return "", false
		}
		return e.Start.Time.Format(layout), true
	}
}

type accumulator struct {
	count    int
	elements map[string]struct{}
	meters   sum
	rate     sum
}

// sum tracks a total over valid measures only.
type sum struct {
	total float64
	n     int
}

func (s *sum) add(m model.Measure) {
	if m.Valid {
		s.total += m.Float64
		s.n++
	}
}

func (s sum) measure() model.Measure {
	if s.n == 0 {
		return model.Invalid
	}
	return model.Some(s.total)
}

func (s sum) mean() model.Measure {
	if s.n == 0 {
		return model.Invalid
	}
	return model.Some(s.total / float64(s.n))
}

func group(events []model.ProductionEvent, key keyFunc, less func(a, b string) bool) []Group {
	acc := make(map[string]*accumulator)
	for _, e := range events {
		k, ok := key(e)
		if !ok {
			continue
		}
		a := acc[k]
		if a == nil {
			a = &accumulator{elements: make(map[string]struct{})}
			acc[k] = a
		}
		a.count++
		a.elements[e.ElementID] = struct{}{}
		a.meters.add(e.Meters())
		a.rate.add(e.RateMetersPerHour)
	}

	groups := make([]Group, 0, len(acc))
	for k, a := range acc {
		groups = append(groups, Group{
			Key:      k,
			Count:    a.count,
			Elements: len(a.elements),
			Meters:   a.meters.measure(),
			MeanRate: a.rate.mean(),
			Rated:    a.rate.n,
		})
	}
	if less == nil {
		less = func(a, b string) bool { return a < b }
	}
	sort.Slice(groups, func(i, j int) bool { return less(groups[i].Key, groups[j].Key) })
	return groups
}

// MeanRate is the mean of all valid rates.
func MeanRate(events []model.ProductionEvent) model.Measure {
	var s sum
	for _, e := range events {
		s.add(e.RateMetersPerHour)
	}
	return s.mean()
}

// TotalMeters is the sum of all valid lengths in meters.
func TotalMeters(events []model.ProductionEvent) model.Measure {
	var s sum
	for _, e := range events {
		s.add(e.Meters())
	}
	return s.measure()
}
