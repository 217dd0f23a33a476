package printing

import (
	"bytes"
	_ "embed"
	"html/template"

	"github.com/labelprint/backend/internal/domain/label"
)

//go:embed templates/print_template.html
var printTemplateSource string

const defaultDocumentTitle = "Labels"

// DocumentAssembler lays page groups out into one printable HTML document.
// The print skeleton is parsed once by NewDocumentAssembler.
type DocumentAssembler struct {
	skeleton   *template.Template
	title      string
	pageMargin string
	columns    int
}

// AssemblerOption configures the document assembler
type AssemblerOption func(*DocumentAssembler)

// WithDocumentTitle sets the <title> of the assembled document
func WithDocumentTitle(title string) AssemblerOption {
	return func(a *DocumentAssembler) {
		a.title = title
	}
}

// WithPageMargin sets the CSS @page margin, e.g. "0" or "10mm 5mm"
func WithPageMargin(margin string) AssemblerOption {
	return func(a *DocumentAssembler) {
		a.pageMargin = margin
	}
}

// WithColumns lays items out in a fixed grid instead of flowing them
func WithColumns(columns int) AssemblerOption {
	return func(a *DocumentAssembler) {
		a.columns = max(columns, 0)
	}
}

// NewDocumentAssembler parses the print skeleton
func NewDocumentAssembler(opts ...AssemblerOption) (*DocumentAssembler, error) {
	skeleton, err := template.New("print_template").Parse(printTemplateSource)
	if err != nil {
		return nil, label.NewConfigurationError("print_template", "failed to parse print skeleton", err)
	}

	a := &DocumentAssembler{
		skeleton:   skeleton,
		title:      defaultDocumentTitle,
		pageMargin: "0",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

type skeletonData struct {
	Title      string
	PageMargin template.CSS
	Columns    int
	Pages      [][]template.HTML
}

// Assemble renders one page container per group, in order, each holding
// that group's fragments in order
func (a *DocumentAssembler) Assemble(groups [][]string) (string, error) {
	pages := make([][]template.HTML, len(groups))
	for i, group := range groups {
		items := make([]template.HTML, len(group))
		for j, fragment := range group {
			items[j] = template.HTML(fragment)
		}
		pages[i] = items
	}

	var buf bytes.Buffer
	err := a.skeleton.Execute(&buf, skeletonData{
		Title:      a.title,
		PageMargin: template.CSS(a.pageMargin),
		Columns:    a.columns,
		Pages:      pages,
	})
	if err != nil {
		return "", label.NewRenderError(label.ErrCodeInvalidHTML, "failed to assemble document", err)
	}
	return buf.String(), nil
}
