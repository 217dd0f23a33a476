package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/labelprint/backend/internal/interfaces/http/dto"
	"github.com/labelprint/backend/internal/interfaces/http/router"
)

// SystemHandler serves health checks
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	renderer  bool
	storage   bool
}

// NewSystemHandler creates a new SystemHandler. renderer and storage report
// whether PDFs can be produced and stored.
func NewSystemHandler(renderer, storage bool) *SystemHandler {
	return &SystemHandler{
		startTime: time.Now(),
		renderer:  renderer,
		storage:   storage,
	}
}

// Routes creates the versioned system route group
func (h *SystemHandler) Routes() *router.DomainGroup {
	group := router.NewDomainGroup("system", "/system")
	group.GET("/health", h.Health)
	return group
}

// Health reports liveness and which optional backends are wired
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=dto.HealthResponse}
// @Router       /system/health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.HealthResponse{
		Status:   "ok",
		Renderer: h.renderer,
		Storage:  h.storage,
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
	}))
}
