package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "mesflow",
		Short: "mesflow - normalize MES production exports",
		Long: `mesflow reads a Manufacturing Execution System export (CSV or XLSX),
normalizes locale-formatted numbers and timestamps, decomposes job codes into
project and element identities, filters invalid records and reports on the
resulting production events.

Input can be a local file, "-" for stdin, or s3://bucket/key.

Configuration is layered: defaults < /etc/mesflow/config.yaml <
~/.mesflow/config.yaml < ./.mesflow.yaml < .env < MESFLOW_* environment < flags.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Config file applied over the standard locations")
	pf.StringVarP(&a.input, "input", "i", "", "Input export (path, '-' for stdin, or s3://bucket/key)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&a.jsonOutput, "json", false, "Output as JSON")
	pf.BoolVar(&a.noProgress, "no-progress", false, "Disable the read progress bar")
	pf.StringVar(&a.delimiter, "delimiter", "", "Force the CSV delimiter (e.g. ';', 'tab')")
	pf.StringVar(&a.sheet, "sheet", "", "XLSX worksheet to read")
	pf.StringVar(&a.timezone, "timezone", "", "IANA zone for timestamps without an offset")
	pf.StringVar(&a.dateOrder, "date-order", "", "Date order: auto, dmy or mdy")
	pf.StringVar(&a.numericPolicy, "numeric-policy", "", "Decimal separator policy: auto, european or american")

	root.AddCommand(
		newAnalyzeCmd(a),
		newAggregateCmd(a),
		newRankCmd(a),
		newRouteCmd(a),
		newFlowCmd(a),
		newInspectCmd(a),
		newQueryCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
	)
	return root
}
