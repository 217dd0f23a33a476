package label

import "fmt"

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout     = "RENDER_TIMEOUT"
	ErrCodeRenderFailed      = "RENDER_FAILED"
	ErrCodeInvalidHTML       = "INVALID_HTML"
	ErrCodeBinaryNotFound    = "BINARY_NOT_FOUND"
	ErrCodeInvalidPaperSize  = "INVALID_PAPER_SIZE"
	ErrCodeStylesheetUnread  = "STYLESHEET_UNREADABLE"
	ErrCodeTargetUnwritable  = "TARGET_UNWRITABLE"
	ErrCodeStorageFailed     = "STORAGE_FAILED"
	ErrCodeStorageNotEnabled = "STORAGE_NOT_CONFIGURED"
)

// ConfigurationError reports an invalid construction-time parameter:
// a bad page size, an unreadable template file, an unknown encoding.
type ConfigurationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Cause != nil {
		return "configuration error: " + msg + ": " + e.Cause.Error()
	}
	return "configuration error: " + msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(field, message string, cause error) *ConfigurationError {
	return &ConfigurationError{
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// TemplateRenderError reports a failed substitution for one record.
// Index is the zero-based position of the record in the input sequence.
type TemplateRenderError struct {
	Index    int
	Template string
	Cause    error
}

func (e *TemplateRenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("template %q failed for record %d: %v", e.Template, e.Index, e.Cause)
	}
	return fmt.Sprintf("template %q failed for record %d", e.Template, e.Index)
}

func (e *TemplateRenderError) Unwrap() error {
	return e.Cause
}

// NewTemplateRenderError creates a new TemplateRenderError
func NewTemplateRenderError(index int, template string, cause error) *TemplateRenderError {
	return &TemplateRenderError{
		Index:    index,
		Template: template,
		Cause:    cause,
	}
}

// RenderError represents an error during HTML or PDF rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// EncodingError reports that an image encoder rejected its input,
// e.g. data too long for the symbology or letters where digits are required.
type EncodingError struct {
	Symbology string
	Input     string
	Cause     error
}

func (e *EncodingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot encode %q as %s: %v", e.Input, e.Symbology, e.Cause)
	}
	return fmt.Sprintf("cannot encode %q as %s", e.Input, e.Symbology)
}

func (e *EncodingError) Unwrap() error {
	return e.Cause
}

// NewEncodingError creates a new EncodingError
func NewEncodingError(symbology, input string, cause error) *EncodingError {
	return &EncodingError{
		Symbology: symbology,
		Input:     input,
		Cause:     cause,
	}
}
