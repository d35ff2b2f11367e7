package pipeline

import (
	"github.com/mesflow/mesflow/internal/model"
	"github.com/mesflow/mesflow/pkg/aggregate"
	"github.com/mesflow/mesflow/pkg/route"
)

// Dataset is the immutable result of a run. Aggregates are recomputed on
// every call.
type Dataset struct {
	run    Run
	events []model.ProductionEvent
	routes *route.Reconstructor
}

func newDataset(run Run, events []model.ProductionEvent, routes *route.Reconstructor) *Dataset {
	return &Dataset{run: run, events: events, routes: routes}
}

// Run returns the run context.
func (d *Dataset) Run() Run { return d.run }

// Len returns the number of events.
func (d *Dataset) Len() int { return len(d.events) }

// Events returns a copy of the events in input order.
func (d *Dataset) Events() []model.ProductionEvent {
	return append([]model.ProductionEvent(nil), d.events...)
}

// Routes returns the route reconstructor over all events.
func (d *Dataset) Routes() *route.Reconstructor { return d.routes }

// Summary computes the headline figures.
func (d *Dataset) Summary() aggregate.Summary { return aggregate.Summarize(d.events) }

// GroupBy groups the events along dim.
func (d *Dataset) GroupBy(dim aggregate.Dimension) []aggregate.Group {
	return aggregate.By(dim, d.events)
}

// RankProjects ranks projects by mean rate.
func (d *Dataset) RankProjects() aggregate.Ranking { return aggregate.RankProjects(d.events) }

// Project returns the events of one project in input order.
func (d *Dataset) Project(projectID string) []model.ProductionEvent {
	var out []model.ProductionEvent
	for _, e := range d.events {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out
}
