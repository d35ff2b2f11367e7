package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesflow/mesflow/pkg/aggregate"
	"github.com/mesflow/mesflow/pkg/config"
	"github.com/mesflow/mesflow/pkg/ingest"
	"github.com/mesflow/mesflow/pkg/pipeline"
	"github.com/mesflow/mesflow/pkg/route"
	"github.com/mesflow/mesflow/pkg/tui"
)

func newAggregateCmd(a *app) *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Group events and report counts, length and mean rate",
		Long: `Group accepted events along one dimension. Null measures are excluded
from sums and means; events without a start time are left out of calendar
groupings.

Examples:
  mesflow aggregate -i export.csv --by unit
  mesflow aggregate -i export.csv --by month --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dim := aggregate.Dimension(strings.ToLower(by))
			if !slices.Contains(aggregate.Dimensions, dim) {
				return fmt.Errorf("unknown dimension %q (valid: %s)", by, dimensionList())
			}
			ds, err := a.analyze(cmd.Context())
			if err != nil {
				return err
			}
			groups := ds.GroupBy(dim)
			return a.emit(groups, func(p tui.Printer) {
				p.Section("by " + string(dim))
				rows := make([][]string, 0, len(groups))
				for _, g := range groups {
					rows = append(rows, []string{
						g.Key,
						strconv.Itoa(g.Count),
						strconv.Itoa(g.Elements),
						tui.Measure(g.Meters, 1),
						tui.Measure(g.MeanRate, 1),
						strconv.Itoa(g.Rated),
					})
				}
				p.Table([]string{strings.ToUpper(string(dim)[:1]) + string(dim)[1:], "Events", "Elements", "Meters", "Mean rate (m/h)", "Rated"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", string(aggregate.DimProject), "Dimension: "+dimensionList())
	return cmd
}

func dimensionList() string {
	names := make([]string, len(aggregate.Dimensions))
	for i, d := range aggregate.Dimensions {
		names[i] = string(d)
	}
	return strings.Join(names, ", ")
}

func newRankCmd(a *app) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank projects by mean production rate",
		Long: `Rank projects fastest first. A project is above average when its mean
rate exceeds the mean of all project means. Projects without a single valid
rate are listed separately.

Examples:
  mesflow rank -i export.csv
  mesflow rank -i export.csv --top 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if top < 0 {
				return fmt.Errorf("--top must be >= 0, got %d", top)
			}
			ds, err := a.analyze(cmd.Context())
			if err != nil {
				return err
			}
			ranking := ds.RankProjects()
			ranking.Projects = ranking.Top(top)
			return a.emit(ranking, func(p tui.Printer) {
				p.Section("project ranking")
				rows := make([][]string, 0, len(ranking.Projects))
				for _, r := range ranking.Projects {
					rows = append(rows, []string{
						strconv.Itoa(r.Rank),
						r.Project,
						tui.Measure(r.MeanRate, 1),
						tui.Measure(r.Meters, 1),
						string(r.Status),
					})
				}
				p.Table([]string{"#", "Project", "Mean rate (m/h)", "Meters", "Vs average"}, rows)
				p.Field("Average", tui.Measure(ranking.Average, 1))
				if len(ranking.Unrated) > 0 {
					p.Muted("unrated: " + strings.Join(ranking.Unrated, ", "))
				}
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", 0, "Show only the N fastest projects (0 = all)")
	return cmd
}

// routeReport is the route view of one element.
type routeReport struct {
	Element  string   `json:"element"`
	Project  string   `json:"project"`
	Units    []string `json:"units"`
	Events   int      `json:"events"`
	LeadTime string   `json:"lead_time,omitempty"`
	Gap      bool     `json:"gap"`
	Skipped  []string `json:"skipped,omitempty"`
}

func newRouteCmd(a *app) *cobra.Command {
	var (
		element string
		project string
		expect  string
	)
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Show element routes and check them against the expected route",
		Long: `Show the time-ordered unit route of one element, or of every element in
a project. With an expected route (--expect or routes.expected in config) each
route is checked for gaps: a gap means the route is not an in-order
subsequence of the expected route.

Examples:
  mesflow route -i export.csv --element 0042
  mesflow route -i export.csv --project 2301 --expect Saw,Drill,Weld,Paint`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if element == "" && project == "" {
				return fmt.Errorf("pass --element or --project")
			}
			expected := a.cfg.Routes.Expected
			if cmd.Flags().Changed("expect") {
				expected = config.SplitList(expect)
			}

			ds, err := a.analyze(cmd.Context())
			if err != nil {
				return err
			}
			reports, err := routeReports(ds, element, project, expected)
			if err != nil {
				return err
			}
			return a.emit(reports, func(p tui.Printer) {
				p.Section("routes")
				if len(expected) > 0 {
					p.Field("Expected", strings.Join(expected, " → "))
				}
				rows := make([][]string, 0, len(reports))
				gaps := 0
				for _, r := range reports {
					gap := ""
					if r.Gap {
						gap = "gap"
						gaps++
					}
					rows = append(rows, []string{
						r.Element, r.Project, strings.Join(r.Units, " → "),
						orNA(r.LeadTime), gap, strings.Join(r.Skipped, ", "),
					})
				}
				p.Table([]string{"Element", "Project", "Route", "Lead time", "Gap", "Skipped"}, rows)
				if len(expected) > 0 {
					if gaps == 0 {
						p.Success("every route follows the expected order")
					} else {
						p.Warn(fmt.Sprintf("%d of %d routes have gaps", gaps, len(reports)))
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&element, "element", "", "Element ID")
	cmd.Flags().StringVar(&project, "project", "", "Project ID (all elements, or narrows --element)")
	cmd.Flags().StringVar(&expect, "expect", "", "Expected unit order, comma separated")
	return cmd
}

func routeReports(ds *pipeline.Dataset, element, project string, expected []string) ([]routeReport, error) {
	routes := ds.Routes()

	var ids []string
	if element != "" {
		ids = []string{element}
	} else {
		ids = routes.ForProject(project)
		if len(ids) == 0 {
			return nil, fmt.Errorf("project %q has no events", project)
		}
	}

	reports := make([]routeReport, 0, len(ids))
	for _, id := range ids {
		evs := routes.Events(id)
		if len(evs) == 0 {
			return nil, fmt.Errorf("element %q has no events", id)
		}
		if project != "" && evs[0].ProjectID != project {
			return nil, fmt.Errorf("element %q belongs to project %q, not %q", id, evs[0].ProjectID, project)
		}
		r := routeReport{
			Element: id,
			Project: evs[0].ProjectID,
			Units:   routes.Route(id),
			Events:  len(evs),
		}
		if lt, ok := routes.LeadTime(id); ok {
			r.LeadTime = lt.String()
		}
		if len(expected) > 0 {
			r.Gap = routes.HasGap(id, expected)
			r.Skipped = routes.Skipped(id, expected)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}

type flowReport struct {
	route.Flow
	Variants []route.Variant `json:"variants"`
}

func newFlowCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Show unit transitions and route variants",
		Long: `Build the directly-follows graph of units over every element route and
list the distinct route variants, most frequent first.

Examples:
  mesflow flow -i export.csv
  mesflow flow -i export.csv --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := a.analyze(cmd.Context())
			if err != nil {
				return err
			}
			routes := ds.Routes()
			rep := flowReport{Flow: routes.Flow(), Variants: routes.Variants()}
			if limit > 0 {
				rep.Transitions = rep.Transitions[:min(limit, len(rep.Transitions))]
				rep.Variants = rep.Variants[:min(limit, len(rep.Variants))]
			}
			return a.emit(rep, func(p tui.Printer) {
				p.Section("transitions")
				rows := make([][]string, 0, len(rep.Transitions))
				for _, t := range rep.Transitions {
					rows = append(rows, []string{t.From, t.To, strconv.Itoa(t.Count)})
				}
				p.Table([]string{"From", "To", "Elements"}, rows)

				p.Section("variants")
				rows = rows[:0]
				for _, v := range rep.Variants {
					rows = append(rows, []string{strings.Join(v.Units, " → "), strconv.Itoa(v.Count)})
				}
				p.Table([]string{"Route", "Elements"}, rows)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Show only the N most frequent transitions and variants (0 = all)")
	return cmd
}

type inspection struct {
	Source    string   `json:"source"`
	Format    string   `json:"format"`
	Delimiter string   `json:"delimiter,omitempty"`
	Columns   []string `json:"columns"`
	Missing   []string `json:"missing"`
	RowsRead  int      `json:"rows_read"`
	Malformed int      `json:"malformed"`
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show the detected format, delimiter and available columns",
		Long: `Show how the input was read: its format, the sniffed CSV delimiter and
which logical columns the export carries. Reports that need a missing column
degrade instead of failing; only the job column is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := a.analyze(cmd.Context())
			if err != nil {
				return err
			}
			run := ds.Run()
			in := inspection{
				Source:    run.Source,
				Format:    run.Format.String(),
				Columns:   columnNames(run.Columns.Available()),
				Missing:   columnNames(run.Columns.Missing()),
				RowsRead:  run.Stats.RowsRead,
				Malformed: run.Stats.Malformed,
			}
			if run.Format == ingest.FormatCSV {
				in.Delimiter = string(run.Delimiter)
			}
			return a.emit(in, func(p tui.Printer) {
				p.Section("input")
				p.Field("Source", in.Source)
				p.Field("Format", in.Format)
				if run.Format == ingest.FormatCSV {
					p.Field("Delimiter", tui.Delimiter(run.Delimiter))
				}
				p.Field("Rows read", strconv.Itoa(in.RowsRead))
				p.Field("Malformed", strconv.Itoa(in.Malformed))

				p.Section("columns")
				for _, c := range in.Columns {
					p.Success(c)
				}
				for _, c := range in.Missing {
					p.Warn(c + " (missing)")
				}
			})
		},
	}
}

func columnNames(cols []ingest.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.String()
	}
	return names
}
