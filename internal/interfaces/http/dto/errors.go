package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeInternal = "ERR_INTERNAL"
	ErrCodeNotFound = "ERR_NOT_FOUND"
)

// Request error codes
const (
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeTooManyRecords  = "ERR_TOO_MANY_RECORDS"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
)

// Label pipeline error codes
const (
	// ErrCodeConfiguration covers bad templates and writer settings
	ErrCodeConfiguration = "ERR_CONFIGURATION"
	// ErrCodeTemplateRender means a record could not be substituted
	ErrCodeTemplateRender = "ERR_TEMPLATE_RENDER"
	// ErrCodeEncoding means a barcode or QR input was rejected
	ErrCodeEncoding = "ERR_ENCODING"
	// ErrCodeRender means the PDF engine or the target failed
	ErrCodeRender             = "ERR_RENDER"
	ErrCodeRenderTimeout      = "ERR_RENDER_TIMEOUT"
	ErrCodeStorageUnavailable = "ERR_STORAGE_UNAVAILABLE"
	ErrCodeRendererMissing    = "ERR_RENDERER_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,
	ErrCodeNotFound: http.StatusNotFound,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeTooManyRecords:  http.StatusRequestEntityTooLarge,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,

	ErrCodeConfiguration:      http.StatusBadRequest,
	ErrCodeTemplateRender:     http.StatusUnprocessableEntity,
	ErrCodeEncoding:           http.StatusUnprocessableEntity,
	ErrCodeRender:             http.StatusInternalServerError,
	ErrCodeRenderTimeout:      http.StatusGatewayTimeout,
	ErrCodeStorageUnavailable: http.StatusServiceUnavailable,
	ErrCodeRendererMissing:    http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
