package aggregate

import (
	"sort"

	"github.com/mesflow/mesflow/internal/model"
)

// Summary holds the headline figures of a dataset.
type Summary struct {
	Events      int           `json:"events"`
	Projects    int           `json:"projects"`
	Elements    int           `json:"elements"`
	Units       int           `json:"units"`
	TotalMeters model.Measure `json:"total_meters"`
	MeanRate    model.Measure `json:"mean_rate"`
	// BusiestUnit is the unit with the most events; ties go to the
	// lexically smallest name.
	BusiestUnit string        `json:"busiest_unit"`
	First       model.Instant `json:"first_start"`
	Last        model.Instant `json:"last_start"`
}

// TotalKm returns TotalMeters in kilometers.
func (s Summary) TotalKm() model.Measure {
	if !s.TotalMeters.Valid {
		return model.Invalid
	}
	return model.Some(s.TotalMeters.Float64 / 1000)
}

// Summarize computes the Summary of events.
func Summarize(events []model.ProductionEvent) Summary {
	projects := make(map[string]struct{})
	elements := make(map[string]struct{})
	units := make(map[string]int)

	s := Summary{Events: len(events)}
	for _, e := range events {
		projects[e.ProjectID] = struct{}{}
		elements[e.ElementID] = struct{}{}
		if e.Unit != "" {
			units[e.Unit]++
		}
		if e.Start.Valid {
			if !s.First.Valid || e.Start.Time.Before(s.First.Time) {
				s.First = e.Start
			}
			if !s.Last.Valid || s.Last.Time.Before(e.Start.Time) {
				s.Last = e.Start
			}
		}
	}

	s.Projects = len(projects)
	s.Elements = len(elements)
	s.Units = len(units)
	s.TotalMeters = TotalMeters(events)
	s.MeanRate = MeanRate(events)

	best := 0
	for unit, n := range units {
		if n > best || n == best && unit < s.BusiestUnit {
			s.BusiestUnit, best = unit, n
		}
	}
	return s
}

// Status compares a project's speed to the average of all projects.
type Status string

const (
	AboveAverage Status = "above"
	BelowAverage Status = "below"
)

// ProjectRank is one row of the project speed ranking.
type ProjectRank struct {
	Rank     int           `json:"rank"`
	Project  string        `json:"project"`
	MeanRate model.Measure `json:"mean_rate"`
	Meters   model.Measure `json:"meters"`
	Status   Status        `json:"status"`
}

// Ranking orders projects by mean rate.
type Ranking struct {
	Projects []ProjectRank `json:"projects"`
	// Average is the unweighted mean of the project mean rates.
	Average model.Measure `json:"average"`
	// Unrated lists projects without a single valid rate, sorted.
	Unrated []string `json:"unrated,omitempty"`
}

// RankProjects ranks projects by mean rate, fastest first. A project is
// above average when its mean rate strictly exceeds the mean of all
// project means.
func RankProjects(events []model.ProductionEvent) Ranking {
	var (
		r     Ranking
		means sum
	)
	for _, g := range ByProject(events) {
		if !g.MeanRate.Valid {
			r.Unrated = append(r.Unrated, g.Key)
			continue
		}
		means.add(g.MeanRate)
		r.Projects = append(r.Projects, ProjectRank{Project: g.Key, MeanRate: g.MeanRate, Meters: g.Meters})
	}
	r.Average = means.mean()

	sort.SliceStable(r.Projects, func(i, j int) bool {
		return r.Projects[i].MeanRate.Float64 > r.Projects[j].MeanRate.Float64
	})
	for i := range r.Projects {
		p := &r.Projects[i]
		p.Rank = i + 1
		p.Status = BelowAverage
		if p.MeanRate.Float64 > r.Average.Float64 {
			p.Status = AboveAverage
		}
	}
	return r
}

// Top returns at most n ranked projects.
func (r Ranking) Top(n int) []ProjectRank {
	if n <= 0 || n >= len(r.Projects) {
		return r.Projects
	}
	return r.Projects[:n]
}
