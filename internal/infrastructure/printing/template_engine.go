package printing

import (
	"bytes"
	"html/template"
	"maps"

	"github.com/labelprint/backend/internal/domain/label"
	"github.com/labelprint/backend/internal/infrastructure/imagedata"
	"go.uber.org/zap"
)

// TemplateEngine compiles label item templates with Go's html/template.
// Every template gets the formatting functions and the built-in helpers;
// writer helpers are layered on top at compile time.
type TemplateEngine struct {
	funcMap  template.FuncMap
	builtins *HelperRegistry
	logger   *zap.Logger
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithBuiltins replaces the built-in helper registry
func WithBuiltins(r *HelperRegistry) TemplateEngineOption {
	return func(e *TemplateEngine) {
		e.builtins = r.Clone()
	}
}

// WithFuncs adds raw template functions
func WithFuncs(fm template.FuncMap) TemplateEngineOption {
	return func(e *TemplateEngine) {
		maps.Copy(e.funcMap, fm)
	}
}

// WithEngineLogger sets the logger
func WithEngineLogger(logger *zap.Logger) TemplateEngineOption {
	return func(e *TemplateEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewTemplateEngine creates a new template engine with default configuration
func NewTemplateEngine(opts ...TemplateEngineOption) *TemplateEngine {
	e := &TemplateEngine{
		funcMap:  formatFuncs(),
		builtins: BuiltinHelpers(),
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// FuncMap returns a copy of the functions every template can call,
// built-in helpers included
func (e *TemplateEngine) FuncMap() template.FuncMap {
	fm := maps.Clone(e.funcMap)
	maps.Copy(fm, e.builtins.FuncMap())
	return fm
}

// Builtins returns the built-in helpers as the lowest context tier
func (e *TemplateEngine) Builtins() label.Bindings {
	return e.builtins.Bindings()
}

// Compile parses an item template once. Helpers in defaults shadow built-ins
// of the same name. Unknown functions and syntax errors fail here, not per record.
func (e *TemplateEngine) Compile(name, content string, defaults *HelperRegistry) (*ItemTemplate, error) {
	if content == "" {
		return nil, label.NewConfigurationError("template", "template content is empty", nil)
	}

	fm := e.FuncMap()
	maps.Copy(fm, defaults.FuncMap())

	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(fm).
		Parse(content)
	if err != nil {
		return nil, label.NewConfigurationError("template", "failed to parse template "+name, err)
	}

	e.logger.Debug("item template compiled",
		zap.String("template", name),
		zap.Int("functions", len(fm)))

	return &ItemTemplate{name: name, tmpl: tmpl}, nil
}

// ItemTemplate is a compiled label template. It holds no per-record state
// and is safe for concurrent use.
type ItemTemplate struct {
	name string
	tmpl *template.Template
}

// Name returns the template name used in error messages
func (t *ItemTemplate) Name() string {
	return t.name
}

// Render substitutes one record's context into the template. index is the
// record's position in the input and is reported on failure.
func (t *ItemTemplate) Render(index int, ctx label.Context) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, templateData(ctx.Flatten())); err != nil {
		return "", label.NewTemplateRenderError(index, t.name, err)
	}
	return buf.String(), nil
}

// templateData prepares flattened bindings for html/template: data URIs
// become trusted URLs and bare helpers are adapted for {{ call }}
func templateData(flat map[string]any) map[string]any {
	for k, v := range flat {
		switch val := v.(type) {
		case string:
			if imagedata.IsDataURI(val) {
				flat[k] = template.URL(val)
			}
		case HelperFunc:
			flat[k] = adaptHelper(val)
		}
	}
	return flat
}
