package label

import (
	"time"

	domain "github.com/labelprint/backend/internal/domain/label"
)

// RenderRequest asks for one label sheet. Zero-valued fields fall back to
// the service defaults.
type RenderRequest struct {
	Records []domain.Record
	// Template replaces the default item template
	Template string
	// ItemsPerPage replaces the default page group size when positive
	ItemsPerPage int
	// Defaults are layered over the configured defaults
	Defaults domain.Bindings
	// Store uploads the PDF to object storage instead of returning it
	Store bool
}

// RenderResult describes a finished label sheet
type RenderResult struct {
	// PDF is set when the sheet was not stored
	PDF     []byte
	Records int
	Pages   int
	// Object is set when the sheet was stored
	Object *ObjectLink
}

// PreviewResult is the assembled HTML of a sheet
type PreviewResult struct {
	HTML    string
	Records int
	Pages   int
}

// ObjectLink points at a stored label sheet
type ObjectLink struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SymbologyResponse describes a barcode symbology templates can use
type SymbologyResponse struct {
	Name string `json:"name"`
	// Digits is the fixed data length, 0 for variable-length symbologies
	Digits int    `json:"digits"`
	Kind   string `json:"kind"`
}
