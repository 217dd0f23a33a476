package printing

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/labelprint/backend/internal/domain/label"
	"go.uber.org/zap"
)

const pdfContentType = "application/pdf"

// ObjectStorage receives label sheets written to label.ToObject targets
type ObjectStorage interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
}

// PDFEmitter turns an assembled document into a PDF through a PDFRenderer
// and delivers it to a target
type PDFEmitter struct {
	renderer    PDFRenderer
	storage     ObjectStorage
	logger      *zap.Logger
	paperSize   label.PaperSize
	orientation label.Orientation
	margins     label.Margins
	title       string
	timeout     time.Duration
}

// EmitterOption configures the PDF emitter
type EmitterOption func(*PDFEmitter)

// WithObjectStorage enables label.ToObject targets
func WithObjectStorage(storage ObjectStorage) EmitterOption {
	return func(e *PDFEmitter) {
		e.storage = storage
	}
}

// WithEmitterLogger sets the logger
func WithEmitterLogger(logger *zap.Logger) EmitterOption {
	return func(e *PDFEmitter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPaper sets the paper size and orientation handed to the engine
func WithPaper(size label.PaperSize, orientation label.Orientation) EmitterOption {
	return func(e *PDFEmitter) {
		e.paperSize = size
		e.orientation = orientation
	}
}

// WithMargins sets engine-level page margins
func WithMargins(margins label.Margins) EmitterOption {
	return func(e *PDFEmitter) {
		e.margins = margins
	}
}

// WithPDFTitle sets the PDF document title metadata
func WithPDFTitle(title string) EmitterOption {
	return func(e *PDFEmitter) {
		e.title = title
	}
}

// WithRenderTimeout overrides the engine's default timeout
func WithRenderTimeout(d time.Duration) EmitterOption {
	return func(e *PDFEmitter) {
		e.timeout = d
	}
}

// NewPDFEmitter creates an emitter. Paper size defaults to CSS-driven so
// stylesheets control the sheet through @page.
func NewPDFEmitter(renderer PDFRenderer, opts ...EmitterOption) *PDFEmitter {
	e := &PDFEmitter{
		renderer:    renderer,
		logger:      zap.NewNop(),
		paperSize:   label.PaperSizeCSSDriven,
		orientation: label.OrientationPortrait,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CanStore reports whether object targets are available
func (e *PDFEmitter) CanStore() bool {
	return e.storage != nil
}

// EmitResult describes a delivered PDF
type EmitResult struct {
	// Data holds the PDF for memory targets and is nil otherwise
	Data           []byte
	Size           int
	PageCount      int
	RenderDuration time.Duration
}

// Emit renders html to PDF and writes it to target. Relative references
// resolve against baseURL; stylesheets are injected in order. Only
// memory targets return the PDF bytes.
func (e *PDFEmitter) Emit(ctx context.Context, html string, target label.Target, baseURL string, stylesheets []string) ([]byte, error) {
	res, err := e.EmitResult(ctx, html, target, baseURL, stylesheets)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// EmitResult is Emit with size and timing details
func (e *PDFEmitter) EmitResult(ctx context.Context, html string, target label.Target, baseURL string, stylesheets []string) (*EmitResult, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(html) == "" {
		return nil, label.NewRenderError(label.ErrCodeInvalidHTML, "document is empty", nil)
	}
	if target.Kind == label.TargetObject && e.storage == nil {
		return nil, label.NewRenderError(label.ErrCodeStorageNotEnabled, "object storage is not configured", nil)
	}

	doc, baseHref, err := e.prepare(html, baseURL, stylesheets)
	if err != nil {
		return nil, err
	}

	result, err := e.renderer.Render(ctx, &RenderRequest{
		HTML:                  doc,
		BaseURL:               baseHref,
		PaperSize:             e.paperSize,
		Orientation:           e.orientation,
		Margins:               e.margins,
		Title:                 e.title,
		EnableLocalFileAccess: hasFileBase(baseHref),
		Timeout:               e.timeout,
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("label sheet rendered",
		zap.Stringer("target", target.Kind),
		zap.Int("pages", result.PageCount),
		zap.Int("bytes", len(result.PDFData)),
		zap.Duration("duration", result.RenderDuration))

	data, err := e.deliver(ctx, result.PDFData, target)
	if err != nil {
		return nil, err
	}
	return &EmitResult{
		Data:           data,
		Size:           len(result.PDFData),
		PageCount:      result.PageCount,
		RenderDuration: result.RenderDuration,
	}, nil
}

// prepare injects base href and stylesheets into the document
func (e *PDFEmitter) prepare(html, baseURL string, stylesheets []string) (string, string, error) {
	baseHref, err := ResolveBaseURL(baseURL)
	if err != nil {
		return "", "", label.NewRenderError(label.ErrCodeInvalidHTML, "invalid base URL", err)
	}
	styles, err := LoadStylesheets(stylesheets)
	if err != nil {
		return "", "", err
	}
	doc, err := InjectHead(html, baseHref, styles)
	if err != nil {
		return "", "", err
	}
	return doc, baseHref, nil
}

func (e *PDFEmitter) deliver(ctx context.Context, data []byte, target label.Target) ([]byte, error) {
	switch target.Kind {
	case label.TargetFile:
		if err := os.WriteFile(target.Path, data, 0o644); err != nil {
			return nil, label.NewRenderError(label.ErrCodeTargetUnwritable, "failed to write "+target.Path, err)
		}
		return nil, nil
	case label.TargetWriter:
		if _, err := target.Writer.Write(data); err != nil {
			return nil, label.NewRenderError(label.ErrCodeTargetUnwritable, "failed to write PDF", err)
		}
		return nil, nil
	case label.TargetObject:
		if err := e.storage.Upload(ctx, target.Key, data, pdfContentType); err != nil {
			return nil, label.NewRenderError(label.ErrCodeStorageFailed, "failed to upload "+target.Key, err)
		}
		return nil, nil
	default:
		return data, nil
	}
}

// Close releases the underlying engine
func (e *PDFEmitter) Close() error {
	return e.renderer.Close()
}
