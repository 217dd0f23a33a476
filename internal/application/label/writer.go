// Package label orchestrates label sheet production: each record is rendered
// through the item template, fragments are chunked into pages, pages are
// assembled into one document and the document is emitted as a PDF.
package label

import (
	"context"
	"maps"
	"os"
	"time"

	domain "github.com/labelprint/backend/internal/domain/label"
	"github.com/labelprint/backend/internal/infrastructure/logger"
	infra "github.com/labelprint/backend/internal/infrastructure/printing"
	"github.com/labelprint/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// LabelWriter turns record batches into label sheets. Configuration is fixed
// at construction; write calls share no mutable state and may run concurrently.
type LabelWriter struct {
	template     *infra.ItemTemplate
	assembler    *infra.DocumentAssembler
	emitter      *infra.PDFEmitter
	builtins     domain.Bindings
	defaults     domain.Bindings
	itemsPerPage int
	stylesheets  []string
	baseURL      string
	logger       *zap.Logger
	metrics      *telemetry.LabelMetrics
}

// WriteOptions are per-call settings layered on the writer configuration
type WriteOptions struct {
	// Target selects where the PDF goes; the zero value returns the bytes
	Target domain.Target
	// Stylesheets are injected after the writer's stylesheets
	Stylesheets []string
	// BaseURL replaces the writer's base URL when set
	BaseURL string
}

type writerOptions struct {
	engine  *infra.TemplateEngine
	emitter *infra.PDFEmitter
	logger  *zap.Logger
	metrics *telemetry.LabelMetrics
}

// WriterOption configures NewLabelWriter
type WriterOption func(*writerOptions)

// WithEmitter sets the PDF stage. A writer without one can only produce HTML.
func WithEmitter(e *infra.PDFEmitter) WriterOption {
	return func(o *writerOptions) {
		o.emitter = e
	}
}

// WithTemplateEngine replaces the default template engine
func WithTemplateEngine(e *infra.TemplateEngine) WriterOption {
	return func(o *writerOptions) {
		o.engine = e
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) WriterOption {
	return func(o *writerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records every write call on m
func WithMetrics(m *telemetry.LabelMetrics) WriterOption {
	return func(o *writerOptions) {
		o.metrics = m
	}
}

// NewLabelWriter reads and compiles the template and fixes the defaults.
// Every configuration problem is reported here as a *label.ConfigurationError.
func NewLabelWriter(cfg WriterConfig, opts ...WriterOption) (*LabelWriter, error) {
	o := &writerOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.engine == nil {
		o.engine = infra.NewTemplateEngine(infra.WithEngineLogger(o.logger))
	}

	itemsPerPage, err := cfg.itemsPerPage()
	if err != nil {
		return nil, err
	}

	defaults, err := defaultBindings(cfg.Defaults, cfg.Helpers)
	if err != nil {
		return nil, err
	}

	name, content, err := cfg.templateSource()
	if err != nil {
		return nil, err
	}
	tmpl, err := o.engine.Compile(name, content, cfg.Helpers)
	if err != nil {
		return nil, err
	}

	var asmOpts []infra.AssemblerOption
	if cfg.Title != "" {
		asmOpts = append(asmOpts, infra.WithDocumentTitle(cfg.Title))
	}
	if cfg.PageMargin != "" {
		asmOpts = append(asmOpts, infra.WithPageMargin(cfg.PageMargin))
	}
	if cfg.Columns > 0 {
		asmOpts = append(asmOpts, infra.WithColumns(cfg.Columns))
	}
	assembler, err := infra.NewDocumentAssembler(asmOpts...)
	if err != nil {
		return nil, domain.NewConfigurationError("assembler", "cannot build print skeleton", err)
	}

	o.logger.Debug("label writer configured",
		zap.String("template", name),
		zap.Int("items_per_page", itemsPerPage),
		zap.Int("stylesheets", len(cfg.Stylesheets)),
		zap.Strings("helpers", cfg.Helpers.Names()))

	return &LabelWriter{
		template:     tmpl,
		assembler:    assembler,
		emitter:      o.emitter,
		builtins:     o.engine.Builtins(),
		defaults:     defaults,
		itemsPerPage: itemsPerPage,
		stylesheets:  append([]string(nil), cfg.Stylesheets...),
		baseURL:      cfg.BaseURL,
		logger:       o.logger,
		metrics:      o.metrics,
	}, nil
}

// defaultBindings merges default values with named helpers. A name may be
// bound only once.
func defaultBindings(values domain.Bindings, helpers *infra.HelperRegistry) (domain.Bindings, error) {
	merged := maps.Clone(values)
	if merged == nil {
		merged = domain.Bindings{}
	}
	for name, fn := range helpers.Bindings() {
		if _, dup := merged[name]; dup {
			return nil, domain.NewConfigurationError("defaults",
				"name "+name+" is bound both as a value and as a helper", nil)
		}
		merged[name] = fn
	}
	return merged, nil
}

// ItemsPerPage returns the page group size
func (w *LabelWriter) ItemsPerPage() int {
	return w.itemsPerPage
}

// CanEmit reports whether the writer has a PDF stage
func (w *LabelWriter) CanEmit() bool {
	return w.emitter != nil
}

// RecordToHTML renders one record. index is its position in the batch and
// is carried by any *label.TemplateRenderError.
func (w *LabelWriter) RecordToHTML(index int, record domain.Record) (string, error) {
	return w.template.Render(index, domain.NewContext(w.builtins, w.defaults, record))
}

// RecordsToHTML renders, chunks and assembles records into one document.
// When path is set the document is also written there.
func (w *LabelWriter) RecordsToHTML(ctx context.Context, records []domain.Record, path string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "labels.html",
		telemetry.WithAttribute(telemetry.SpanAttrRecords, len(records)))
	defer span.End()

	doc, pages, err := w.document(records)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrPages, pages)

	if path != "" {
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			rerr := domain.NewRenderError(domain.ErrCodeTargetUnwritable, "failed to write "+path, err)
			telemetry.RecordError(span, rerr)
			return "", rerr
		}
		logger.ForContext(ctx, w.logger).Info("label document written",
			zap.String("path", path),
			zap.Int("records", len(records)),
			zap.Int("pages", pages))
	}
	return doc, nil
}

// WriteLabels runs the full pipeline. Any failing record aborts the batch
// and no PDF is produced. Only memory targets return bytes.
func (w *LabelWriter) WriteLabels(ctx context.Context, records []domain.Record, opts WriteOptions) ([]byte, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "labels.write",
		telemetry.WithAttribute(telemetry.SpanAttrRecords, len(records)),
		telemetry.WithAttribute(telemetry.SpanAttrItemsPerPage, w.itemsPerPage),
		telemetry.WithAttribute(telemetry.SpanAttrTarget, opts.Target.Kind.String()))
	defer span.End()
	log := logger.ForContext(ctx, w.logger)

	stats := telemetry.WriteStats{Target: opts.Target.Kind.String(), Records: len(records)}
	fail := func(err error) ([]byte, error) {
		stats.Duration = time.Since(start)
		stats.Err = err
		w.metrics.RecordWrite(ctx, stats)
		telemetry.RecordError(span, err)
		log.Warn("label sheet failed",
			zap.Int("records", len(records)),
			zap.Stringer("target", opts.Target.Kind),
			zap.Error(err))
		return nil, err
	}

	if w.emitter == nil {
		return fail(domain.NewConfigurationError("renderer", "no PDF renderer configured", nil))
	}

	var (
		doc   string
		pages int
		err   error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(telemetry.OperationAssemble, nil), func(context.Context) {
		doc, pages, err = w.document(records)
	})
	if err != nil {
		return fail(err)
	}
	telemetry.AddEvent(span, "assembled", telemetry.SpanAttrPages, pages)

	baseURL := w.baseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	stylesheets := append(append([]string(nil), w.stylesheets...), opts.Stylesheets...)

	var res *infra.EmitResult
	renderLabels := telemetry.OperationLabels(telemetry.OperationRender, map[string]string{
		telemetry.ProfilingLabelTarget: opts.Target.Kind.String(),
	})
	telemetry.WithProfilingLabels(ctx, renderLabels, func(ctx context.Context) {
		res, err = w.emitter.EmitResult(ctx, doc, opts.Target, baseURL, stylesheets)
	})
	if err != nil {
		return fail(err)
	}

	stats.Pages = pages
	stats.Bytes = res.Size
	stats.Duration = time.Since(start)
	w.metrics.RecordWrite(ctx, stats)
	telemetry.SetAttributes(span, telemetry.SpanAttrPages, pages, telemetry.SpanAttrBytes, res.Size)
	telemetry.SetOK(span)

	log.Info("label sheet written",
		zap.Int("records", len(records)),
		zap.Int("pages", pages),
		zap.Int("bytes", res.Size),
		zap.Stringer("target", opts.Target.Kind),
		zap.Duration("render", res.RenderDuration),
		zap.Duration("duration", stats.Duration))

	return res.Data, nil
}

// document renders every record, chunks the fragments and assembles pages
func (w *LabelWriter) document(records []domain.Record) (string, int, error) {
	fragments := make([]string, len(records))
	for i, record := range records {
		html, err := w.RecordToHTML(i, record)
		if err != nil {
			return "", 0, err
		}
		fragments[i] = html
	}

	groups, err := domain.Chunk(fragments, w.itemsPerPage)
	if err != nil {
		return "", 0, err
	}

	doc, err := w.assembler.Assemble(groups)
	if err != nil {
		return "", 0, domain.NewRenderError(domain.ErrCodeInvalidHTML, "failed to assemble document", err)
	}
	return doc, len(groups), nil
}

// Close releases the PDF engine
func (w *LabelWriter) Close() error {
	if w.emitter == nil {
		return nil
	}
	return w.emitter.Close()
}
