// Package events assembles raw export records into typed production events.
package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mesflow/mesflow/internal/model"
	"github.com/mesflow/mesflow/internal/timeparse"
	mferrors "github.com/mesflow/mesflow/pkg/errors"
	"github.com/mesflow/mesflow/pkg/ingest"
	"github.com/mesflow/mesflow/pkg/jobcode"
	"github.com/mesflow/mesflow/pkg/numeric"
	"github.com/mesflow/mesflow/pkg/quality"
)

// DateOrder selects how slash/dash dates are read.
type DateOrder string

const (
	DateOrderAuto       DateOrder = "auto"
	DateOrderDayFirst   DateOrder = "dmy"
	DateOrderMonthFirst DateOrder = "mdy"
)

// dateSampleSize bounds how many start values feed order detection.
const dateSampleSize = 500

// Options configure a Builder.
type Options struct {
	Decomposer jobcode.Decomposer
	Numeric    numeric.Normalizer
	Thresholds quality.Thresholds
	DateOrder  DateOrder
	Location   *time.Location
}

// DefaultOptions returns the options for a standard MES export.
func DefaultOptions() Options {
	return Options{
		Decomposer: jobcode.Default(),
		Thresholds: quality.DefaultThresholds(),
		DateOrder:  DateOrderAuto,
		Location:   time.UTC,
	}
}

// Stats count what the builder did with each record. Defects are counted
// here and never returned as errors.
type Stats struct {
	Records       int `json:"records"`
	Accepted      int `json:"accepted"`
	Rejected      int `json:"rejected"`
	RatesNulled   int `json:"rates_nulled"`
	InvalidLength int `json:"invalid_length"`
	InvalidRate   int `json:"invalid_rate"`
	NullStart     int `json:"null_start"`
	NullFinish    int `json:"null_finish"`
}

// Result is the builder's output.
type Result struct {
	Events    []model.ProductionEvent
	Stats     Stats
	DateOrder timeparse.Order
}

// Builder turns ingest.Tables into events.
type Builder struct {
	opts   Options
	logger *zap.Logger
}

// NewBuilder creates a Builder. A nil logger disables logging.
func NewBuilder(opts Options, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{opts: opts, logger: logger}
}

// Build converts every record of tbl. Records failing the validity filter
// are dropped; all others become exactly one event, in input order.
func (b *Builder) Build(ctx context.Context, tbl *ingest.Table) (Result, error) {
	parser := timeparse.Parser{Order: b.dateOrder(tbl), Location: b.opts.Location}
	filter := quality.New(b.opts.Thresholds)
	filter.RequireLength = tbl.Columns.Has(ingest.ColLength)

	res := Result{
		Events:    make([]model.ProductionEvent, 0, len(tbl.Records)),
		DateOrder: parser.Order,
	}

	for i, rec := range tbl.Records {
		if i%4096 == 0 && ctx.Err() != nil {
			return Result{}, mferrors.Wrap(ctx.Err(), mferrors.CodeContextCanceled, "build canceled")
		}
		res.Stats.Records++

		candidate := b.assemble(rec, parser, &res.Stats)
		event, verdict := filter.Apply(candidate)
		switch verdict {
		case quality.Reject:
			res.Stats.Rejected++
			continue
		case quality.NullRate:
			res.Stats.RatesNulled++
		}
		res.Stats.Accepted++
		res.Events = append(res.Events, event)
	}

	b.logger.Debug("events built",
		zap.Int("records", res.Stats.Records),
		zap.Int("accepted", res.Stats.Accepted),
		zap.Int("rejected", res.Stats.Rejected),
		zap.Int("rates_nulled", res.Stats.RatesNulled),
		zap.Stringer("date_order", res.DateOrder))
	return res, nil
}

// assemble builds the pre-filter candidate for one record.
func (b *Builder) assemble(rec ingest.RawRecord, parser timeparse.Parser, st *Stats) model.ProductionEvent {
	job, _ := rec.Field(ingest.ColJob)
	parts := b.opts.Decomposer.Decompose(job)
	unit, _ := rec.Field(ingest.ColUnit)

	e := model.ProductionEvent{
		Row:       rec.Row,
		Job:       parts.Raw,
		TypeTag:   parts.TypeTag,
		ProjectID: parts.ProjectID,
		ElementID: parts.ElementID,
		Unit:      strings.TrimSpace(unit),
	}

	if raw, ok := rec.Field(ingest.ColLength); ok {
		e.LengthMm = b.opts.Numeric.Parse(raw)
		if !e.LengthMm.Valid {
			st.InvalidLength++
		}
	}
	if raw, ok := rec.Field(ingest.ColRate); ok {
		e.RateMetersPerHour = b.opts.Numeric.Parse(raw)
		if !e.RateMetersPerHour.Valid && strings.TrimSpace(raw) != "" {
			st.InvalidRate++
		}
	}

	e.Start = instant(rec, ingest.ColStart, parser)
	if !e.Start.Valid {
		st.NullStart++
	}
	e.Finish = instant(rec, ingest.ColFinish, parser)
	if !e.Finish.Valid {
		st.NullFinish++
	}
	return e
}

func instant(rec ingest.RawRecord, col ingest.Column, p timeparse.Parser) model.Instant {
	raw, ok := rec.Field(col)
	if !ok {
		return model.Instant{}
	}
	t, ok := p.Parse(raw)
	if !ok {
		return model.Instant{}
	}
	return model.At(t)
}

func (b *Builder) dateOrder(tbl *ingest.Table) timeparse.Order {
	switch b.opts.DateOrder {
	case DateOrderDayFirst:
		return timeparse.DayFirst
	case DateOrderMonthFirst:
		return timeparse.MonthFirst
	}

	var samples []string
	for _, col := range []ingest.Column{ingest.ColStart, ingest.ColFinish} {
		for _, rec := range tbl.Records {
			if len(samples) >= dateSampleSize {
				break
			}
			if v, ok := rec.Field(col); ok && v != "" {
				samples = append(samples, v)
			}
		}
	}
	return timeparse.DetectOrder(samples)
}

// ParseDateOrder validates a configured date order.
func ParseDateOrder(s string) (DateOrder, error) {
	switch d := DateOrder(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DateOrderAuto, nil
	case DateOrderAuto, DateOrderDayFirst, DateOrderMonthFirst:
		return d, nil
	default:
		return DateOrderAuto, fmt.Errorf("unknown date order %q (want auto, dmy or mdy)", s)
	}
}
