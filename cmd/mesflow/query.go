package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesflow/mesflow/pkg/query/engine"
	"github.com/mesflow/mesflow/pkg/tui"
)

func newQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query SQL",
		Short: "Run SQL against the accepted events",
		Long: `Load the accepted events into an in-memory DuckDB table named "events"
and run one SQL statement against it. Null measures and timestamps load as
SQL NULL.

Columns: row_num, job, element_id, project_id, type, unit, start_time,
finish_time, length_mm, meters, rate_m_per_h.

Examples:
  mesflow query -i export.csv "SELECT unit, count(*) FROM events GROUP BY unit"
  mesflow query -i export.csv --json "SELECT * FROM events WHERE rate_m_per_h IS NULL"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ds, err := a.analyze(ctx)
			if err != nil {
				return err
			}

			eng, err := engine.NewEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.Load(ctx, ds.Events()); err != nil {
				return err
			}
			res, err := eng.Query(ctx, args[0])
			if err != nil {
				return err
			}
			defer res.Close()
			a.logger.Debug("query executed", zap.Duration("duration", res.Duration()))

			if a.jsonOutput {
				maps, err := res.ToMaps()
				if err != nil {
					return err
				}
				return a.emit(maps, nil)
			}

			columns := res.Columns()
			var cells [][]string
			values := make([]any, len(columns))
			ptrs := make([]any, len(columns))
			for i := range values {
				ptrs[i] = &values[i]
			}
			for res.Next() {
				if err := res.Scan(ptrs...); err != nil {
					return err
				}
				row := make([]string, len(values))
				for i, v := range values {
					row[i] = formatValue(v)
				}
				cells = append(cells, row)
			}
			if err := res.Err(); err != nil {
				return err
			}

			p := a.printer()
			p.Table(columns, cells)
			p.Muted(fmt.Sprintf("%d rows in %s", res.RowCount(), tui.FormatDuration(res.Duration())))
			return nil
		},
	}
}

// formatValue renders one SQL value for the terminal.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return x.Format(time.RFC3339)
	case []byte:
		return string(x)
	case string:
		return strings.TrimSpace(x)
	default:
		return fmt.Sprint(x)
	}
}
