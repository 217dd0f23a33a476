package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	labelapp "github.com/labelprint/backend/internal/application/label"
	"github.com/labelprint/backend/internal/domain/label"
	"github.com/labelprint/backend/internal/infrastructure/logger"
	"github.com/labelprint/backend/internal/interfaces/http/dto"
	"github.com/labelprint/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct {
	logger *zap.Logger
}

// requestID returns the ID assigned by the request logger
func requestID(c *gin.Context) string {
	if id := logger.RequestID(c.Request.Context()); id != "" {
		return id
	}
	return c.GetHeader(logger.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the status derived from code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, requestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeNotFound, message)
}

// BindError answers a request whose body could not be bound
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	if details := middleware.ValidationDetails(err); details != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
			"Request validation failed", requestID(c), details))
		return
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		h.Error(c, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
		return
	}
	h.Error(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON: "+err.Error())
}

// HandleError maps label pipeline errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	log := logger.FromGin(c, h.logger)

	var (
		tmplErr   *label.TemplateRenderError
		encErr    *label.EncodingError
		cfgErr    *label.ConfigurationError
		renderErr *label.RenderError
	)
	switch {
	case errors.As(err, &tmplErr):
		code := dto.ErrCodeTemplateRender
		if errors.As(err, &encErr) {
			code = dto.ErrCodeEncoding
		}
		c.JSON(dto.GetHTTPStatus(code), dto.NewRecordErrorResponse(code, err.Error(), requestID(c), tmplErr.Index))
	case errors.As(err, &encErr):
		h.Error(c, dto.ErrCodeEncoding, err.Error())
	case errors.As(err, &cfgErr):
		code := dto.ErrCodeConfiguration
		if cfgErr.Field == "renderer" {
			code = dto.ErrCodeRendererMissing
		}
		h.Error(c, code, err.Error())
	case errors.Is(err, labelapp.ErrTooManyRecords):
		h.Error(c, dto.ErrCodeTooManyRecords, err.Error())
	case errors.Is(err, labelapp.ErrObjectNotFound):
		h.NotFound(c, err.Error())
	case errors.As(err, &renderErr):
		h.handleRenderError(c, log, renderErr)
	default:
		log.Error("unexpected error", zap.Error(err))
		h.Error(c, dto.ErrCodeInternal, "An unexpected error occurred")
	}
}

func (h *BaseHandler) handleRenderError(c *gin.Context, log *zap.Logger, err *label.RenderError) {
	switch err.Code {
	case label.ErrCodeStorageNotEnabled:
		h.Error(c, dto.ErrCodeStorageUnavailable, err.Message)
	case label.ErrCodeRenderTimeout:
		log.Warn("label rendering timed out", zap.Error(err))
		h.Error(c, dto.ErrCodeRenderTimeout, err.Message)
	case label.ErrCodeInvalidHTML, label.ErrCodeStylesheetUnread:
		h.Error(c, dto.ErrCodeConfiguration, err.Error())
	default:
		log.Error("label rendering failed", zap.String("code", err.Code), zap.Error(err))
		h.Error(c, dto.ErrCodeRender, err.Message)
	}
}
