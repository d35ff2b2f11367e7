package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesflow/mesflow/pkg/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run analyze whenever the input file changes",
		Long: `Analyze a local export, then watch it and analyze again each time the
exporting system rewrites it. Every run starts from scratch; nothing is
carried over between runs. Stop with Ctrl-C.

Examples:
  mesflow watch -i /mnt/mes/export.csv
  mesflow watch -i export.csv --debounce 2s --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.input == "" || a.input == "-" || strings.HasPrefix(a.input, "s3://") {
				return fmt.Errorf("watch needs a local file, got %q", a.input)
			}
			ctx := cmd.Context()

			w, err := watch.NewWatcher(debounce, a.logger)
			if err != nil {
				return err
			}
			if err := w.Watch(a.input); err != nil {
				w.Close()
				return err
			}
			w.OnChange = func(ctx context.Context, _ string) error {
				return a.analyzeOnce(ctx)
			}
			w.OnError = func(path string, err error) {
				a.logger.Warn("re-run failed", zap.String("path", path), zap.Error(err))
				a.printer().Warn(err.Error())
			}

			if err := a.analyzeOnce(ctx); err != nil {
				w.Close()
				return err
			}
			a.printer().Muted("watching " + a.input + " (Ctrl-C to stop)")

			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a change is processed")
	return cmd
}

func (a *app) analyzeOnce(ctx context.Context) error {
	ds, err := a.analyze(ctx)
	if err != nil {
		return err
	}
	return a.emitAnalysis(ds)
}
