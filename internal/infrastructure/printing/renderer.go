package printing

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/labelprint/backend/internal/domain/label"
)

// RenderRequest contains the parameters for rendering HTML to PDF
type RenderRequest struct {
	// HTML is a complete standalone document
	HTML string
	// BaseURL is the URL relative references in the document resolve against.
	// A file:// base lets the engine load local assets next to the template.
	BaseURL string
	// PaperSize defines the output paper dimensions.
	// PaperSizeCSSDriven leaves the size to the document's @page rule.
	PaperSize label.PaperSize
	// Orientation defines portrait or landscape
	Orientation label.Orientation
	// Margins in millimeters
	Margins label.Margins
	// Title for the PDF document metadata
	Title string
	// EnableLocalFileAccess allows loading local images and fonts
	EnableLocalFileAccess bool
	// Timeout overrides the default rendering timeout
	Timeout time.Duration
}

// RenderResult contains the output from PDF rendering
type RenderResult struct {
	// PDFData is the raw PDF file content
	PDFData []byte
	// PageCount is the number of pages in the PDF
	PageCount int
	// RenderDuration is how long the rendering took
	RenderDuration time.Duration
}

// PDFRenderer defines the interface for rendering HTML to PDF
type PDFRenderer interface {
	// Render converts HTML content to a PDF document
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	// Close releases any resources held by the renderer
	Close() error
}

// validateRequest runs the checks shared by every engine
func validateRequest(req *RenderRequest) error {
	if req == nil {
		return label.NewRenderError(label.ErrCodeInvalidHTML, "render request is nil", nil)
	}
	if strings.TrimSpace(req.HTML) == "" {
		return label.NewRenderError(label.ErrCodeInvalidHTML, "HTML content is empty", nil)
	}
	if !req.PaperSize.IsValid() {
		return label.NewRenderError(label.ErrCodeInvalidPaperSize, "invalid paper size: "+string(req.PaperSize), nil)
	}
	return nil
}

// estimatePageCount estimates the page count from PDF data
// by counting "/Type /Page" objects minus the "/Type /Pages" tree nodes
func estimatePageCount(pdfData []byte) int {
	count := bytes.Count(pdfData, []byte("/Type /Page"))
	parentCount := bytes.Count(pdfData, []byte("/Type /Pages"))
	count = count - parentCount
	return max(count, 1)
}

// mmToInches converts millimeters to inches
func mmToInches(mm float64) float64 {
	return mm / 25.4
}
