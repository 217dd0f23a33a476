package printing

import (
	"fmt"

	"github.com/labelprint/backend/internal/domain/label"
	infraconfig "github.com/labelprint/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewRenderer builds the PDF engine selected by cfg.Engine
func NewRenderer(cfg infraconfig.RendererConfig, logger *zap.Logger) (PDFRenderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Engine {
	case infraconfig.EngineChromedp, "":
		return NewChromedpRenderer(&ChromedpConfig{
			DefaultTimeout: cfg.Timeout,
			RemoteURL:      cfg.RemoteURL,
			NoSandbox:      cfg.NoSandbox,
			TempDir:        cfg.TempDir,
			Logger:         logger.Named("chromedp"),
		})
	case infraconfig.EngineWkhtmltopdf:
		return NewWkhtmltopdfRenderer(&WkhtmltopdfConfig{
			BinaryPath:     cfg.BinaryPath,
			DefaultTimeout: cfg.Timeout,
			TempDir:        cfg.TempDir,
			DPI:            cfg.DPI,
			Logger:         logger.Named("wkhtmltopdf"),
		})
	default:
		return nil, label.NewConfigurationError("renderer", fmt.Sprintf("unknown engine %q", cfg.Engine), nil)
	}
}

// EmitterOptions translates renderer settings into emitter options
func EmitterOptions(cfg infraconfig.RendererConfig, title string) []EmitterOption {
	return []EmitterOption{
		WithPaper(label.PaperSize(cfg.PaperSize), label.Orientation(cfg.Orientation)),
		WithMargins(cfg.Margins),
		WithRenderTimeout(cfg.Timeout),
		WithPDFTitle(title),
	}
}
