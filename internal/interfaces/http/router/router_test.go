package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
	assert.Empty(t, r.middleware)
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))

	g := NewDomainGroup("labels", "/labels")
	g.GET("/symbologies", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.Register(g).Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v2/labels/symbologies").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/labels/symbologies").Code)
}

func TestRouterWithMiddleware(t *testing.T) {
	engine := gin.New()
	engine.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	r := NewRouter(engine, WithMiddleware(func(c *gin.Context) {
		c.Header("X-API", "yes")
		c.Next()
	}))
	g := NewDomainGroup("labels", "/labels")
	g.POST("/pdf", func(c *gin.Context) { c.String(http.StatusOK, "pdf") })
	r.Register(g).Setup()

	w := serve(engine, http.MethodPost, "/api/v1/labels/pdf")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "yes", w.Header().Get("X-API"))

	w = serve(engine, http.MethodGet, "/health")
	assert.Empty(t, w.Header().Get("X-API"), "middleware is scoped to the API group")
}

func TestDomainGroup(t *testing.T) {
	t.Run("name, prefix and routes", func(t *testing.T) {
		g := NewDomainGroup("labels", "/labels")
		g.GET("/a", func(c *gin.Context) {}).POST("/b", func(c *gin.Context) {})

		assert.Equal(t, "labels", g.Name())
		assert.Equal(t, "/labels", g.Prefix())
		routes := g.Routes()
		assert.Len(t, routes, 2)
		assert.Equal(t, http.MethodGet, routes[0].Method)
		assert.Equal(t, "/b", routes[1].Path)
	})

	t.Run("applies group middleware in order", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("labels", "/labels")
		g.Use(func(c *gin.Context) {
			c.Header("X-Order", "first")
			c.Next()
		})
		g.GET("/items", func(c *gin.Context) {
			c.String(http.StatusOK, c.Writer.Header().Get("X-Order"))
		})
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/labels/items")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "first", w.Body.String())
	})

	t.Run("wildcard route", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("labels", "/labels")
		g.GET("/objects/*key", func(c *gin.Context) { c.String(http.StatusOK, c.Param("key")) })
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/labels/objects/sheets/2026/01/02/a.pdf")
		assert.Equal(t, "/sheets/2026/01/02/a.pdf", w.Body.String())
	})
}

func TestMultipleDomainGroups(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	labels := NewDomainGroup("labels", "/labels")
	labels.GET("/symbologies", func(c *gin.Context) { c.String(http.StatusOK, "symbologies") })
	tokens := NewDomainGroup("tokens", "/tokens")
	tokens.POST("", func(c *gin.Context) { c.String(http.StatusCreated, "token") })

	r.Register(labels).Register(tokens)
	r.Setup()

	w := serve(engine, http.MethodGet, "/api/v1/labels/symbologies")
	assert.Equal(t, "symbologies", w.Body.String())
	w = serve(engine, http.MethodPost, "/api/v1/tokens")
	assert.Equal(t, http.StatusCreated, w.Code)
}
