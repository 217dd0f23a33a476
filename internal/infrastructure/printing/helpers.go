package printing

import (
	"fmt"
	"html/template"
	"maps"
	"slices"
	"unicode"

	"github.com/labelprint/backend/internal/domain/label"
	"github.com/labelprint/backend/internal/infrastructure/imagedata"
)

// HelperFunc is a named pure function callable from label templates.
// Helpers returning a data URI can be used directly in <img src>.
type HelperFunc = func(args ...any) (string, error)

// HelperRegistry holds explicitly registered template helpers.
// Registration happens before templates are compiled; a registry is
// read-only once handed to the engine.
type HelperRegistry struct {
	helpers map[string]HelperFunc
}

// NewHelperRegistry creates an empty registry
func NewHelperRegistry() *HelperRegistry {
	return &HelperRegistry{helpers: make(map[string]HelperFunc)}
}

// BuiltinHelpers returns a registry with the image encoders and text
// helpers every template gets
func BuiltinHelpers() *HelperRegistry {
	r := NewHelperRegistry()
	for name, fn := range imagedata.Helpers() {
		r.helpers[name] = fn
	}
	return r
}

// Register adds or replaces a helper
func (r *HelperRegistry) Register(name string, fn HelperFunc) error {
	if !isIdentifier(name) {
		return label.NewConfigurationError("helpers", fmt.Sprintf("invalid helper name %q", name), nil)
	}
	if fn == nil {
		return label.NewConfigurationError("helpers", fmt.Sprintf("helper %q is nil", name), nil)
	}
	r.helpers[name] = fn
	return nil
}

// Get returns the helper registered under name
func (r *HelperRegistry) Get(name string) (HelperFunc, bool) {
	if r == nil {
		return nil, false
	}
	fn, ok := r.helpers[name]
	return fn, ok
}

// Names returns the registered helper names in sorted order
func (r *HelperRegistry) Names() []string {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.helpers))
}

// Len returns the number of registered helpers
func (r *HelperRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.helpers)
}

// Clone returns an independent copy of the registry
func (r *HelperRegistry) Clone() *HelperRegistry {
	c := NewHelperRegistry()
	if r != nil {
		maps.Copy(c.helpers, r.helpers)
	}
	return c
}

// Merge returns a new registry with other's helpers layered over r's
func (r *HelperRegistry) Merge(other *HelperRegistry) *HelperRegistry {
	c := r.Clone()
	if other != nil {
		maps.Copy(c.helpers, other.helpers)
	}
	return c
}

// FuncMap exposes the helpers as template functions: {{ qrCode .id }}
func (r *HelperRegistry) FuncMap() template.FuncMap {
	fm := make(template.FuncMap, r.Len())
	if r == nil {
		return fm
	}
	for name, fn := range r.helpers {
		fm[name] = adaptHelper(fn)
	}
	return fm
}

// Bindings exposes the helpers as context values: {{ call .qrCode .id }}.
// Records shadow these by name like any other binding.
func (r *HelperRegistry) Bindings() label.Bindings {
	b := make(label.Bindings, r.Len())
	if r == nil {
		return b
	}
	for name, fn := range r.helpers {
		b[name] = adaptHelper(fn)
	}
	return b
}

// adaptHelper marks data URI results as trusted URLs so html/template
// does not replace them in src attributes
func adaptHelper(fn HelperFunc) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		out, err := fn(args...)
		if err != nil {
			return nil, err
		}
		return trustDataURI(out), nil
	}
}

func trustDataURI(s string) any {
	if imagedata.IsDataURI(s) {
		return template.URL(s)
	}
	return s
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
