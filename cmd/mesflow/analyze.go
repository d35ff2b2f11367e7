package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesflow/mesflow/pkg/aggregate"
	"github.com/mesflow/mesflow/pkg/ingest"
	"github.com/mesflow/mesflow/pkg/pipeline"
	"github.com/mesflow/mesflow/pkg/tui"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Run the pipeline and print run statistics and KPIs",
		Long: `Run every pipeline stage against the input and print what each stage
did, followed by the headline KPIs of the accepted events.

Examples:
  mesflow analyze -i export.csv
  mesflow analyze -i export.xlsx --sheet Data --json
  mesflow analyze -i s3://plant-exports/2024/week12.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := a.analyze(cmd.Context())
			if err != nil {
				return err
			}
			return a.emitAnalysis(ds)
		},
	}
}

type analysis struct {
	Run     pipeline.Run      `json:"run"`
	Summary aggregate.Summary `json:"summary"`
}

func (a *app) emitAnalysis(ds *pipeline.Dataset) error {
	run := ds.Run()
	sum := ds.Summary()
	return a.emit(analysis{Run: run, Summary: sum}, func(p tui.Printer) {
		p.Section("run")
		p.Field("Source", run.Source)
		p.Field("Run", run.ID.String())
		p.Field("Format", run.Format.String())
		if run.Format == ingest.FormatCSV {
			p.Field("Delimiter", tui.Delimiter(run.Delimiter))
		}
		p.Field("Date order", run.Stats.DateOrder)
		p.Field("Elapsed", tui.FormatDuration(run.Elapsed))
		if missing := run.Columns.Missing(); len(missing) > 0 {
			p.Warn("missing columns: " + strings.Join(columnNames(missing), ", "))
		}

		p.Section("records")
		st := run.Stats
		p.Field("Rows read", strconv.Itoa(st.RowsRead))
		p.Field("Malformed", strconv.Itoa(st.Malformed))
		p.Field("Accepted", strconv.Itoa(st.Accepted))
		p.Field("Rejected", strconv.Itoa(st.Rejected))
		p.Field("Invalid length", strconv.Itoa(st.InvalidLength))
		p.Field("Invalid rate", strconv.Itoa(st.InvalidRate))
		p.Field("Rates nulled", strconv.Itoa(st.RatesNulled))
		p.Field("No start", strconv.Itoa(st.NullStart))
		p.Field("No finish", strconv.Itoa(st.NullFinish))

		p.Section("summary")
		p.Field("Events", strconv.Itoa(sum.Events))
		p.Field("Projects", strconv.Itoa(sum.Projects))
		p.Field("Elements", strconv.Itoa(sum.Elements))
		p.Field("Units", strconv.Itoa(sum.Units))
		p.Field("Total length (km)", tui.Measure(sum.TotalKm(), 2))
		p.Field("Mean rate (m/h)", tui.Measure(sum.MeanRate, 1))
		if sum.BusiestUnit != "" {
			p.Field("Busiest unit", sum.BusiestUnit)
		}
		p.Field("First start", tui.Instant(sum.First))
		p.Field("Last start", tui.Instant(sum.Last))
		if sum.Events == 0 {
			p.Muted("no events passed the filter")
		} else {
			p.Success("analysis complete")
		}
	})
}
