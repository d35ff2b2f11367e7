package route

import (
	"sort"
	"strings"
)

// Transition is a directly-follows pair of units observed within routes.
type Transition struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// Variant is one distinct route shared by Count elements.
type Variant struct {
	Units []string `json:"units"`
	Count int      `json:"count"`
}

// Flow summarizes how elements move between units.
type Flow struct {
	Transitions []Transition   `json:"transitions"`
	Starts      map[string]int `json:"starts"`
	Ends        map[string]int `json:"ends"`
	Visits      map[string]int `json:"visits"`
}

// Flow builds the directly-follows graph over every element's route.
func (r *Reconstructor) Flow() Flow {
	f := Flow{
		Starts: make(map[string]int),
		Ends:   make(map[string]int),
		Visits: make(map[string]int),
	}
	edges := make(map[[2]string]int)

	for _, id := range r.elements {
		units := r.Route(id)
		if len(units) == 0 {
			continue
		}
		f.Starts[units[0]]++
		f.Ends[units[len(units)-1]]++
		for i, unit := range units {
			f.Visits[unit]++
			if i < len(units)-1 {
				edges[[2]string{unit, units[i+1]}]++
			}
		}
	}

	for pair, count := range edges {
		f.Transitions = append(f.Transitions, Transition{From: pair[0], To: pair[1], Count: count})
	}
	sort.Slice(f.Transitions, func(i, j int) bool {
		a, b := f.Transitions[i], f.Transitions[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})
	return f
}

// variantKey separates units in map keys.
const variantKey = "\x1f"

// Variants returns the distinct routes, most common first.
func (r *Reconstructor) Variants() []Variant {
	counts := make(map[string]int)
	for _, id := range r.elements {
		counts[strings.Join(r.Route(id), variantKey)]++
	}

	variants := make([]Variant, 0, len(counts))
	for key, count := range counts {
		var units []string
		if key != "" {
			units = strings.Split(key, variantKey)
		}
		variants = append(variants, Variant{Units: units, Count: count})
	}
	sort.Slice(variants, func(i, j int) bool {
		if variants[i].Count != variants[j].Count {
			return variants[i].Count > variants[j].Count
		}
		return strings.Join(variants[i].Units, ",") < strings.Join(variants[j].Units, ",")
	})
	return variants
}
