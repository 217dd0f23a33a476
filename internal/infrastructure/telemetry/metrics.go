package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrTarget = attribute.Key("target")
	AttrResult = attribute.Key("result")
)

// Result values for AttrResult
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// LabelMetrics records label sheet production. A nil *LabelMetrics is a
// valid no-op recorder.
type LabelMetrics struct {
	sheets   metric.Int64Counter
	records  metric.Int64Counter
	pages    metric.Int64Counter
	bytes    metric.Int64Counter
	duration metric.Float64Histogram
}

// WriteStats describes one finished write call
type WriteStats struct {
	Target   string
	Records  int
	Pages    int
	Bytes    int
	Duration time.Duration
	Err      error
}

// NewLabelMetrics creates the label instruments on meter
func NewLabelMetrics(meter metric.Meter) (*LabelMetrics, error) {
	m := &LabelMetrics{}
	var err error

	if m.sheets, err = meter.Int64Counter("label_sheets_total",
		metric.WithDescription("Label sheet write calls"),
		metric.WithUnit("{sheet}")); err != nil {
		return nil, fmt.Errorf("create label_sheets_total: %w", err)
	}
	if m.records, err = meter.Int64Counter("label_records_total",
		metric.WithDescription("Records rendered into label sheets"),
		metric.WithUnit("{record}")); err != nil {
		return nil, fmt.Errorf("create label_records_total: %w", err)
	}
	if m.pages, err = meter.Int64Counter("label_pages_total",
		metric.WithDescription("Pages produced"),
		metric.WithUnit("{page}")); err != nil {
		return nil, fmt.Errorf("create label_pages_total: %w", err)
	}
	if m.bytes, err = meter.Int64Counter("label_pdf_bytes_total",
		metric.WithDescription("PDF bytes produced"),
		metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("create label_pdf_bytes_total: %w", err)
	}
	if m.duration, err = meter.Float64Histogram("label_write_duration_seconds",
		metric.WithDescription("Duration of label sheet writes"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30)); err != nil {
		return nil, fmt.Errorf("create label_write_duration_seconds: %w", err)
	}
	return m, nil
}

// RecordWrite records the outcome of a write call
func (m *LabelMetrics) RecordWrite(ctx context.Context, s WriteStats) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if s.Err != nil {
		result = ResultFailure
	}
	attrs := metric.WithAttributes(AttrTarget.String(s.Target), AttrResult.String(result))

	m.sheets.Add(ctx, 1, attrs)
	m.duration.Record(ctx, s.Duration.Seconds(), attrs)
	if s.Err != nil {
		return
	}
	m.records.Add(ctx, int64(s.Records), attrs)
	m.pages.Add(ctx, int64(s.Pages), attrs)
	m.bytes.Add(ctx, int64(s.Bytes), attrs)
}
