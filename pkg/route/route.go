// Package route reconstructs the physical path each element took through
// the work units.
//
// A route is the element's events sorted ascending by start time. Events
// without a start sort last; ties keep the original row order. Repeated
// visits to the same unit (rework) are kept.
package route

import (
	"sort"
	"time"

	"github.com/mesflow/mesflow/internal/model"
)

// Reconstructor indexes events by element. It is immutable after New.
type Reconstructor struct {
	byElement map[string][]model.ProductionEvent
	elements  []string
}

// New groups events by element id and orders every group.
func New(events []model.ProductionEvent) *Reconstructor {
	r := &Reconstructor{byElement: make(map[string][]model.ProductionEvent)}
	for _, e := range events {
		if _, ok := r.byElement[e.ElementID]; !ok {
			r.elements = append(r.elements, e.ElementID)
		}
		r.byElement[e.ElementID] = append(r.byElement[e.ElementID], e)
	}
	for _, group := range r.byElement {
		sortByStart(group)
	}
	sort.Strings(r.elements)
	return r
}

func sortByStart(events []model.ProductionEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Start.Before(b.Start) {
			return true
		}
		if b.Start.Before(a.Start) {
			return false
		}
		return a.Row < b.Row
	})
}

// Elements returns all element ids, sorted.
func (r *Reconstructor) Elements() []string {
	return append([]string(nil), r.elements...)
}

// ForProject returns the ids of elements with at least one event in
// projectID, sorted.
func (r *Reconstructor) ForProject(projectID string) []string {
	var ids []string
	for _, id := range r.elements {
		for _, e := range r.byElement[id] {
			if e.ProjectID == projectID {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids
}

// Events returns the ordered events of elementID, or nil if unknown.
func (r *Reconstructor) Events(elementID string) []model.ProductionEvent {
	group := r.byElement[elementID]
	if group == nil {
		return nil
	}
	return append([]model.ProductionEvent(nil), group...)
}

// Route returns the unit names elementID visited, in route order.
func (r *Reconstructor) Route(elementID string) []string {
	group := r.byElement[elementID]
	units := make([]string, len(group))
	for i, e := range group {
		units[i] = e.Unit
	}
	return units
}

// HasGap reports whether the observed route of elementID is not a
// subsequence of expected. A route with at most one event has no gap.
func (r *Reconstructor) HasGap(elementID string, expected []string) bool {
	observed := r.Route(elementID)
	if len(observed) <= 1 {
		return false
	}
	return !isSubsequence(observed, expected)
}

func isSubsequence(observed, expected []string) bool {
	j := 0
	for _, unit := range observed {
		for j < len(expected) && expected[j] != unit {
			j++
		}
		if j == len(expected) {
			return false
		}
		j++
	}
	return true
}

// Skipped returns the expected units lying between the first and the last
// expected unit elementID visited that it never visited. Units outside
// expected are ignored.
func (r *Reconstructor) Skipped(elementID string, expected []string) []string {
	visited := make(map[string]bool)
	for _, unit := range r.Route(elementID) {
		visited[unit] = true
	}

	first, last := -1, -1
	for i, unit := range expected {
		if visited[unit] {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil
	}

	var skipped []string
	for _, unit := range expected[first : last+1] {
		if !visited[unit] {
			skipped = append(skipped, unit)
		}
	}
	return skipped
}

// LeadTime returns the time from the first start to the latest finish of
// elementID. It is false when either end is unknown.
func (r *Reconstructor) LeadTime(elementID string) (time.Duration, bool) {
	group := r.byElement[elementID]
	if len(group) == 0 || !group[0].Start.Valid {
		return 0, false
	}
	var end model.Instant
	for _, e := range group {
		if e.Finish.Valid && (!end.Valid || e.Finish.Time.After(end.Time)) {
			end = e.Finish
		}
	}
	if !end.Valid || end.Time.Before(group[0].Start.Time) {
		return 0, false
	}
	return end.Time.Sub(group[0].Start.Time), true
}
