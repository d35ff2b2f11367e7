package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesflow/mesflow/pkg/config"
	mferrors "github.com/mesflow/mesflow/pkg/errors"
	"github.com/mesflow/mesflow/pkg/ingest/sources"
	"github.com/mesflow/mesflow/pkg/logging"
	"github.com/mesflow/mesflow/pkg/numeric"
	"github.com/mesflow/mesflow/pkg/pipeline"
	"github.com/mesflow/mesflow/pkg/telemetry"
	"github.com/mesflow/mesflow/pkg/tui"
)

// app carries the state shared by every command.
type app struct {
	out    io.Writer
	errOut io.Writer

	// Global flags
	configPath string
	input      string
	verbose    bool
	jsonOutput bool
	noProgress bool

	// Config overrides
	delimiter     string
	sheet         string
	timezone      string
	dateOrder     string
	numericPolicy string

	// lookupEnv replaces os.LookupEnv in tests.
	lookupEnv func(string) (string, bool)

	cfg      *config.Config
	loaded   []string
	logger   *zap.Logger
	shutdown telemetry.Shutdown
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut}
}

// setup loads configuration and starts logging and tracing. It runs before
// every command.
func (a *app) setup(cmd *cobra.Command) error {
	loader := config.NewLoader(a.configPath)
	if a.lookupEnv != nil {
		loader.LookupEnv = a.lookupEnv
	}
	cfg, loaded, err := loader.Load()
	if err != nil {
		return err
	}
	if err := a.applyFlags(cmd, cfg); err != nil {
		return err
	}
	a.cfg, a.loaded = cfg, loaded

	a.logger, err = logging.New(cfg.Logging, a.verbose)
	if err != nil {
		return mferrors.InvalidConfig("logging", err)
	}
	a.logger.Debug("configuration loaded", zap.Strings("files", loaded))

	a.shutdown, err = telemetry.Setup(cmd.Context(), cfg.Telemetry, version)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

// applyFlags layers explicitly set flags over cfg and revalidates.
func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("delimiter") {
		cfg.Input.Delimiter = a.delimiter
	}
	if flags.Changed("sheet") {
		cfg.Input.Sheet = a.sheet
	}
	if flags.Changed("timezone") {
		cfg.Timestamps.Timezone = a.timezone
	}
	if flags.Changed("date-order") {
		cfg.Timestamps.DateOrder = a.dateOrder
	}
	if flags.Changed("numeric-policy") {
		p, err := numeric.ParsePolicy(a.numericPolicy)
		if err != nil {
			return mferrors.InvalidConfig("--numeric-policy", err)
		}
		cfg.Numeric.Policy = p
	}
	return cfg.Validate()
}

// teardown flushes tracing and logs. It runs after every command.
func (a *app) teardown(ctx context.Context) error {
	var errs []error
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(context.WithoutCancel(ctx)))
	}
	if a.logger != nil {
		// Sync on a terminal stderr fails with ENOTTY; nothing was lost.
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}

// newPipeline builds a pipeline from the loaded configuration.
func (a *app) newPipeline() (*pipeline.Pipeline, error) {
	opts, err := a.cfg.EventOptions()
	if err != nil {
		return nil, err
	}
	delim, err := a.cfg.DelimiterRune()
	if err != nil {
		return nil, mferrors.InvalidConfig("input.delimiter", err)
	}

	p := pipeline.New(a.logger)
	p.Options = opts
	p.Ingestor.Schema = a.cfg.Columns
	p.Ingestor.Delimiter = delim
	p.Ingestor.Sheet = a.cfg.Input.Sheet
	if a.showProgress() {
		p.Ingestor.Progress = tui.ProgressReader(a.errOut, "reading")
	}
	return p, nil
}

// analyze runs the pipeline against the --input location.
func (a *app) analyze(ctx context.Context) (*pipeline.Dataset, error) {
	if a.input == "" {
		return nil, errors.New("no input: pass -i FILE, - for stdin, or s3://bucket/key")
	}
	src, err := sources.Resolve(ctx, a.input, a.cfg.S3)
	if err != nil {
		return nil, err
	}
	p, err := a.newPipeline()
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, src)
}

// showProgress draws a progress bar only on an interactive stderr.
func (a *app) showProgress() bool {
	if a.noProgress || a.jsonOutput {
		return false
	}
	f, ok := a.errOut.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// emit writes v as indented JSON with --json, otherwise calls render.
func (a *app) emit(v any, render func(p tui.Printer)) error {
	if a.jsonOutput {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	render(tui.Printer{W: a.out})
	return nil
}

func (a *app) printer() tui.Printer {
	return tui.Printer{W: a.out}
}
