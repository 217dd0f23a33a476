package label

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	domain "github.com/labelprint/backend/internal/domain/label"
	"github.com/labelprint/backend/internal/infrastructure/imagedata"
	"github.com/labelprint/backend/internal/infrastructure/logger"
	infra "github.com/labelprint/backend/internal/infrastructure/printing"
	"github.com/labelprint/backend/internal/infrastructure/storage"
	"github.com/labelprint/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Service errors
var (
	ErrTooManyRecords = errors.New("too many records in one request")
	ErrObjectNotFound = errors.New("label sheet not found")
)

// ObjectLocator finds stored label sheets and signs download links for them
type ObjectLocator interface {
	ObjectExists(ctx context.Context, key string) (bool, error)
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// LabelService renders label sheets for API callers. Requests without their
// own template reuse one writer compiled at startup.
type LabelService struct {
	defaults   WriterConfig
	writer     *LabelWriter
	engine     *infra.TemplateEngine
	emitter    *infra.PDFEmitter
	objects    ObjectLocator
	keyPrefix  string
	linkTTL    time.Duration
	maxRecords int
	logger     *zap.Logger
	metrics    *telemetry.LabelMetrics
	now        func() time.Time
}

// ServiceOption configures NewLabelService
type ServiceOption func(*LabelService)

// WithObjectLocator enables download links for sheets stored under prefix
func WithObjectLocator(locator ObjectLocator, prefix string, ttl time.Duration) ServiceOption {
	return func(s *LabelService) {
		s.objects = locator
		s.keyPrefix = prefix
		s.linkTTL = ttl
	}
}

// WithMaxRecords caps the records accepted per request; zero means no cap
func WithMaxRecords(n int) ServiceOption {
	return func(s *LabelService) {
		s.maxRecords = n
	}
}

// WithServiceLogger sets the logger
func WithServiceLogger(l *zap.Logger) ServiceOption {
	return func(s *LabelService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithServiceMetrics records every write on m
func WithServiceMetrics(m *telemetry.LabelMetrics) ServiceOption {
	return func(s *LabelService) {
		s.metrics = m
	}
}

// NewLabelService creates the service. When defaults names a template it is
// compiled now so a broken default template fails startup.
func NewLabelService(defaults WriterConfig, emitter *infra.PDFEmitter, opts ...ServiceOption) (*LabelService, error) {
	s := &LabelService{
		defaults: defaults,
		emitter:  emitter,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = infra.NewTemplateEngine(infra.WithEngineLogger(s.logger))

	if defaults.TemplatePath != "" || defaults.TemplateContent != "" {
		w, err := s.newWriter(defaults)
		if err != nil {
			return nil, err
		}
		s.writer = w
	}
	return s, nil
}

func (s *LabelService) newWriter(cfg WriterConfig) (*LabelWriter, error) {
	return NewLabelWriter(cfg,
		WithEmitter(s.emitter),
		WithTemplateEngine(s.engine),
		WithLogger(s.logger),
		WithMetrics(s.metrics))
}

// writerFor returns the shared writer, or a request-scoped one when the
// request overrides the template, page size or defaults
func (s *LabelService) writerFor(template string, itemsPerPage int, defaults domain.Bindings) (*LabelWriter, error) {
	if template == "" && itemsPerPage == 0 && len(defaults) == 0 {
		if s.writer == nil {
			return nil, domain.NewConfigurationError("template", "no default template is configured", nil)
		}
		return s.writer, nil
	}

	cfg := s.defaults
	if template != "" {
		cfg.TemplateContent = template
		cfg.TemplatePath = ""
		// Caller markup must not reach the server's filesystem
		if base, err := infra.ResolveBaseURL(cfg.BaseURL); err != nil || strings.HasPrefix(strings.ToLower(base), "file:") {
			cfg.BaseURL = ""
		}
	}
	if itemsPerPage != 0 {
		cfg.ItemsPerPage = itemsPerPage
	}
	if len(defaults) > 0 {
		merged := maps.Clone(s.defaults.Defaults)
		if merged == nil {
			merged = domain.Bindings{}
		}
		maps.Copy(merged, defaults)
		cfg.Defaults = merged
	}
	return s.newWriter(cfg)
}

func (s *LabelService) checkRecords(records []domain.Record) error {
	if s.maxRecords > 0 && len(records) > s.maxRecords {
		return fmt.Errorf("%w: %d exceeds %d", ErrTooManyRecords, len(records), s.maxRecords)
	}
	return nil
}

// Render produces a label sheet. Stored sheets come back as a download link.
func (s *LabelService) Render(ctx context.Context, req RenderRequest) (*RenderResult, error) {
	if err := s.checkRecords(req.Records); err != nil {
		return nil, err
	}
	w, err := s.writerFor(req.Template, req.ItemsPerPage, req.Defaults)
	if err != nil {
		return nil, err
	}

	result := &RenderResult{
		Records: len(req.Records),
		Pages:   domain.PageCount(len(req.Records), w.ItemsPerPage()),
	}

	if !req.Store {
		data, err := w.WriteLabels(ctx, req.Records, WriteOptions{})
		if err != nil {
			return nil, err
		}
		result.PDF = data
		return result, nil
	}

	if s.objects == nil {
		return nil, domain.NewRenderError(domain.ErrCodeStorageNotEnabled, "object storage is not configured", nil)
	}
	key := storage.ObjectKey(s.keyPrefix, s.now())
	if _, err := w.WriteLabels(ctx, req.Records, WriteOptions{Target: domain.ToObject(key)}); err != nil {
		return nil, err
	}
	link, err := s.link(ctx, key)
	if err != nil {
		return nil, err
	}
	result.Object = link

	logger.ForContext(ctx, s.logger).Info("label sheet stored",
		zap.String("key", key),
		zap.Int("records", result.Records),
		zap.Int("pages", result.Pages))
	return result, nil
}

// Preview returns the assembled HTML without calling the PDF engine
func (s *LabelService) Preview(ctx context.Context, req RenderRequest) (*PreviewResult, error) {
	if err := s.checkRecords(req.Records); err != nil {
		return nil, err
	}
	w, err := s.writerFor(req.Template, req.ItemsPerPage, req.Defaults)
	if err != nil {
		return nil, err
	}
	html, err := w.RecordsToHTML(ctx, req.Records, "")
	if err != nil {
		return nil, err
	}
	return &PreviewResult{
		HTML:    html,
		Records: len(req.Records),
		Pages:   domain.PageCount(len(req.Records), w.ItemsPerPage()),
	}, nil
}

// DownloadLink signs a fresh link for a stored sheet
func (s *LabelService) DownloadLink(ctx context.Context, key string) (*ObjectLink, error) {
	if s.objects == nil {
		return nil, domain.NewRenderError(domain.ErrCodeStorageNotEnabled, "object storage is not configured", nil)
	}
	if prefix := strings.Trim(s.keyPrefix, "/"); prefix != "" && !strings.HasPrefix(key, prefix+"/") {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	exists, err := s.objects.ObjectExists(ctx, key)
	if err != nil {
		return nil, domain.NewRenderError(domain.ErrCodeStorageFailed, "failed to look up "+key, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return s.link(ctx, key)
}

func (s *LabelService) link(ctx context.Context, key string) (*ObjectLink, error) {
	url, expiresAt, err := s.objects.GenerateDownloadURL(ctx, key, s.linkTTL)
	if err != nil {
		return nil, domain.NewRenderError(domain.ErrCodeStorageFailed, "failed to sign download link for "+key, err)
	}
	return &ObjectLink{Key: key, URL: url, ExpiresAt: expiresAt}, nil
}

// Symbologies lists the barcode encodings available to templates
func (s *LabelService) Symbologies() []SymbologyResponse {
	all := imagedata.AllSymbologies()
	out := make([]SymbologyResponse, 0, len(all)+2)
	for _, sym := range all {
		out = append(out, SymbologyResponse{Name: string(sym), Digits: sym.Digits(), Kind: "linear"})
	}
	out = append(out,
		SymbologyResponse{Name: "qrcode", Kind: "matrix"},
		SymbologyResponse{Name: "datamatrix", Kind: "matrix"},
	)
	return out
}

// CanEmit reports whether PDFs can be produced
func (s *LabelService) CanEmit() bool {
	return s.emitter != nil
}

// Close releases the PDF engine
func (s *LabelService) Close() error {
	if s.emitter == nil {
		return nil
	}
	return s.emitter.Close()
}
