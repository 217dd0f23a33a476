package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	labelapp "github.com/labelprint/backend/internal/application/label"
	"github.com/labelprint/backend/internal/domain/label"
	"github.com/labelprint/backend/internal/infrastructure/auth"
	"github.com/labelprint/backend/internal/interfaces/http/dto"
	"github.com/labelprint/backend/internal/interfaces/http/middleware"
	"github.com/labelprint/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// LabelHandler serves label sheet rendering
type LabelHandler struct {
	BaseHandler
	service *labelapp.LabelService
}

// NewLabelHandler creates a new LabelHandler
func NewLabelHandler(service *labelapp.LabelService, logger *zap.Logger) *LabelHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabelHandler{
		BaseHandler: BaseHandler{logger: logger},
		service:     service,
	}
}

// Routes creates the route group for label endpoints. authMiddleware may be nil.
func (h *LabelHandler) Routes(authMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("labels", "/labels")
	if authMiddleware != nil {
		group.Use(authMiddleware)
	}

	group.POST("/pdf", middleware.RequireScope(auth.ScopeRender), h.RenderPDF)
	group.POST("/html", middleware.RequireScope(auth.ScopeRender), h.RenderHTML)
	group.GET("/symbologies", h.ListSymbologies)
	group.GET("/objects/*key", middleware.RequireScope(auth.ScopeRead), h.GetObjectLink)

	return group
}

// bindRenderRequest decodes the body with json.Number so record values keep
// the digits the caller sent, then runs the binding validator.
func bindRenderRequest(c *gin.Context, req *dto.RenderLabelsRequest) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(req); err != nil {
		return err
	}
	return binding.Validator.ValidateStruct(req)
}

// exactNumbers turns integral json.Number values into int64. Other numbers
// stay json.Number and print exactly as sent.
func exactNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		return val
	case map[string]any:
		for k, item := range val {
			val[k] = exactNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = exactNumbers(item)
		}
		return val
	default:
		return v
	}
}

func toRenderRequest(req dto.RenderLabelsRequest) labelapp.RenderRequest {
	records := make([]label.Record, len(req.Records))
	for i, r := range req.Records {
		records[i] = label.Record(exactNumbers(r).(map[string]any))
	}
	var defaults label.Bindings
	if req.Defaults != nil {
		defaults = label.Bindings(exactNumbers(req.Defaults).(map[string]any))
	}
	return labelapp.RenderRequest{
		Records:      records,
		Template:     req.Template,
		ItemsPerPage: req.ItemsPerPage,
		Defaults:     defaults,
		Store:        req.Store,
	}
}

// RenderPDF renders records into a PDF label sheet. The PDF is returned as
// the response body, or stored and described as JSON when store is set.
// @Summary      Render a PDF label sheet
// @Description  Renders every record through the item template and returns the PDF, or uploads it and returns a download link when store is true
// @Tags         labels
// @Accept       json
// @Produce      application/pdf
// @Produce      json
// @Param        request body dto.RenderLabelsRequest true "Records and per-request overrides"
// @Success      200 {file} binary "PDF document"
// @Success      201 {object} dto.Response{data=dto.StoredSheetResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /labels/pdf [post]
func (h *LabelHandler) RenderPDF(c *gin.Context) {
	var req dto.RenderLabelsRequest
	if err := bindRenderRequest(c, &req); err != nil {
		h.BindError(c, err)
		return
	}

	res, err := h.service.Render(c.Request.Context(), toRenderRequest(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if res.Object != nil {
		h.Created(c, dto.StoredSheetResponse{
			Key:       res.Object.Key,
			URL:       res.Object.URL,
			ExpiresAt: res.Object.ExpiresAt,
			Records:   res.Records,
			Pages:     res.Pages,
		})
		return
	}

	c.Header("Content-Disposition", `inline; filename="labels.pdf"`)
	c.Header("X-Label-Records", strconv.Itoa(res.Records))
	c.Header("X-Label-Pages", strconv.Itoa(res.Pages))
	c.Data(http.StatusOK, "application/pdf", res.PDF)
}

// RenderHTML returns the assembled HTML document. With ?format=json the
// document is wrapped in the standard response envelope.
// @Summary      Preview label sheet HTML
// @Description  Assembles the print document without rendering a PDF
// @Tags         labels
// @Accept       json
// @Produce      html
// @Produce      json
// @Param        request body dto.RenderLabelsRequest true "Records and per-request overrides"
// @Param        format query string false "json wraps the document in the response envelope" Enums(json)
// @Success      200 {object} dto.Response{data=dto.PreviewResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /labels/html [post]
func (h *LabelHandler) RenderHTML(c *gin.Context) {
	var req dto.RenderLabelsRequest
	if err := bindRenderRequest(c, &req); err != nil {
		h.BindError(c, err)
		return
	}

	res, err := h.service.Preview(c.Request.Context(), toRenderRequest(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if c.Query("format") == "json" {
		h.Success(c, dto.PreviewResponse{HTML: res.HTML, Records: res.Records, Pages: res.Pages})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(res.HTML))
}

// ListSymbologies lists the barcode encodings templates can call
// @Summary      List barcode symbologies
// @Tags         labels
// @Produce      json
// @Success      200 {object} dto.Response{data=[]labelapp.SymbologyResponse}
// @Security     BearerAuth
// @Router       /labels/symbologies [get]
func (h *LabelHandler) ListSymbologies(c *gin.Context) {
	h.Success(c, h.service.Symbologies())
}

// GetObjectLink signs a fresh download link for a stored sheet
// @Summary      Get a download link for a stored sheet
// @Tags         labels
// @Produce      json
// @Param        key path string true "Object key returned by the PDF endpoint"
// @Param        redirect query bool false "Answer with a 302 to the signed URL"
// @Success      200 {object} dto.Response{data=dto.StoredSheetResponse}
// @Success      302 "Redirect to the signed URL"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /labels/objects/{key} [get]
func (h *LabelHandler) GetObjectLink(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "..") {
		h.BadRequest(c, "invalid object key")
		return
	}

	link, err := h.service.DownloadLink(c.Request.Context(), key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if c.Query("redirect") == "true" {
		c.Redirect(http.StatusFound, link.URL)
		return
	}
	h.Success(c, dto.StoredSheetResponse{Key: link.Key, URL: link.URL, ExpiresAt: link.ExpiresAt})
}
