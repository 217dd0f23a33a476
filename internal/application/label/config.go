package label

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	domain "github.com/labelprint/backend/internal/domain/label"
	infra "github.com/labelprint/backend/internal/infrastructure/printing"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultItemsPerPage is used when WriterConfig.ItemsPerPage is zero
const DefaultItemsPerPage = 1

// WriterConfig is fixed when a LabelWriter is built
type WriterConfig struct {
	// TemplatePath is read once at construction. Ignored when TemplateContent is set.
	TemplatePath string
	// TemplateContent supplies the item template inline
	TemplateContent string
	// TemplateEncoding is a WHATWG label for TemplatePath, default utf-8
	TemplateEncoding string

	// ItemsPerPage must be positive; zero selects DefaultItemsPerPage
	ItemsPerPage int

	// Stylesheets are injected before any per-call stylesheets
	Stylesheets []string
	// BaseURL resolves relative references when a call gives none
	BaseURL string

	// Defaults are values visible to every record unless the record shadows them
	Defaults domain.Bindings
	// Helpers are named functions callable from the template; they shadow built-ins
	Helpers *infra.HelperRegistry

	// Columns lays items out in a fixed grid; zero lets items flow
	Columns int
	// PageMargin is the CSS @page margin of the sheet
	PageMargin string
	// Title is the HTML document title
	Title string
}

// templateSource returns the template name and its decoded content
func (c WriterConfig) templateSource() (string, string, error) {
	if c.TemplateContent != "" {
		return "inline", c.TemplateContent, nil
	}
	if c.TemplatePath == "" {
		return "", "", domain.NewConfigurationError("template", "a template path or template content is required", nil)
	}
	content, err := readTemplate(c.TemplatePath, c.TemplateEncoding)
	if err != nil {
		return "", "", err
	}
	return filepath.Base(c.TemplatePath), content, nil
}

// readTemplate reads path and decodes it from encoding into UTF-8
func readTemplate(path, encoding string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", domain.NewConfigurationError("template", "cannot read template "+path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if encoding != "" && !strings.EqualFold(encoding, "utf-8") && !strings.EqualFold(encoding, "utf8") {
		enc, err := htmlindex.Get(encoding)
		if err != nil {
			return "", domain.NewConfigurationError("template_encoding",
				fmt.Sprintf("unknown template encoding %q", encoding), err)
		}
		r = enc.NewDecoder().Reader(f)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", domain.NewConfigurationError("template", "cannot decode template "+path, err)
	}
	return string(data), nil
}

func (c WriterConfig) itemsPerPage() (int, error) {
	switch {
	case c.ItemsPerPage == 0:
		return DefaultItemsPerPage, nil
	case c.ItemsPerPage < 0:
		return 0, domain.NewConfigurationError("items_per_page",
			fmt.Sprintf("items per page must be positive, got %d", c.ItemsPerPage), nil)
	default:
		return c.ItemsPerPage, nil
	}
}
