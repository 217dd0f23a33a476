package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	labelapp "github.com/labelprint/backend/internal/application/label"
	"github.com/labelprint/backend/internal/domain/label"
	"github.com/labelprint/backend/internal/infrastructure/auth"
	"github.com/labelprint/backend/internal/infrastructure/config"
	"github.com/labelprint/backend/internal/infrastructure/logger"
	infra "github.com/labelprint/backend/internal/infrastructure/printing"
	"github.com/labelprint/backend/internal/infrastructure/storage"
	"github.com/labelprint/backend/internal/interfaces/http/dto"
	"github.com/labelprint/backend/internal/interfaces/http/middleware"
	"github.com/labelprint/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRenderer struct {
	err error
}

func (s *stubRenderer) Render(ctx context.Context, req *infra.RenderRequest) (*infra.RenderResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &infra.RenderResult{PDFData: []byte("%PDF-1.7 stub"), PageCount: 1}, nil
}

func (s *stubRenderer) Close() error { return nil }

type testServer struct {
	engine  *gin.Engine
	objects *storage.MemoryObjectStorage
}

func newTestServer(t *testing.T, renderer infra.PDFRenderer, authMiddleware gin.HandlerFunc) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	objects := storage.NewMemoryObjectStorage("http://labels.local/objects")
	var emitter *infra.PDFEmitter
	if renderer != nil {
		emitter = infra.NewPDFEmitter(renderer, infra.WithObjectStorage(objects))
	}
	svc, err := labelapp.NewLabelService(
		labelapp.WriterConfig{TemplateContent: `<span>{{ .sample_id }}</span>`, ItemsPerPage: 2},
		emitter,
		labelapp.WithObjectLocator(objects, "sheets", time.Minute),
		labelapp.WithMaxRecords(10),
	)
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(logger.GinMiddleware(zap.NewNop()))
	r := router.NewRouter(engine)
	r.Register(NewLabelHandler(svc, nil).Routes(authMiddleware))
	r.Setup()

	return &testServer{engine: engine, objects: objects}
}

func (s *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

const threeRecords = `{"records":[{"sample_id":"s01"},{"sample_id":"s02"},{"sample_id":"s03"}]}`

func TestLabelHandler_RenderPDF(t *testing.T) {
	s := newTestServer(t, &stubRenderer{}, nil)

	w := s.do(http.MethodPost, "/api/v1/labels/pdf", threeRecords)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "3", w.Header().Get("X-Label-Records"))
	assert.Equal(t, "2", w.Header().Get("X-Label-Pages"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestLabelHandler_RenderPDFStored(t *testing.T) {
	s := newTestServer(t, &stubRenderer{}, nil)

	w := s.do(http.MethodPost, "/api/v1/labels/pdf",
		`{"records":[{"sample_id":"s01"}],"store":true}`)
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decode(t, w)
	data := resp.Data.(map[string]any)
	key := data["key"].(string)
	assert.True(t, strings.HasPrefix(key, "sheets/"))
	assert.Contains(t, data["url"], key)
	_, _, ok := s.objects.Get(key)
	assert.True(t, ok)

	w = s.do(http.MethodGet, "/api/v1/labels/objects/"+key, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, key, decode(t, w).Data.(map[string]any)["key"])

	w = s.do(http.MethodGet, "/api/v1/labels/objects/"+key+"?redirect=true", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), key)
}

func TestLabelHandler_ObjectLinkErrors(t *testing.T) {
	s := newTestServer(t, &stubRenderer{}, nil)

	w := s.do(http.MethodGet, "/api/v1/labels/objects/sheets/missing.pdf", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, decode(t, w).Error.Code)

	w = s.do(http.MethodGet, "/api/v1/labels/objects/sheets/../secret.pdf", "")
	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestLabelHandler_RenderHTML(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := s.do(http.MethodPost, "/api/v1/labels/html", threeRecords)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<span>s03</span>")
	assert.Equal(t, 2, strings.Count(w.Body.String(), `<div class="label-page">`))

	w = s.do(http.MethodPost, "/api/v1/labels/html?format=json",
		`{"records":[{"sample_id":"s01"}],"template":"<b>{{ .sample_id }}</b>","items_per_page":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]any)
	assert.Contains(t, data["html"], "<b>s01</b>")
	assert.Equal(t, float64(1), data["pages"])
}

func TestLabelHandler_RenderHTMLKeepsNumbersExact(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := s.do(http.MethodPost, "/api/v1/labels/html", `{
		"records":[{"sample_id":20240117,"weight":12.50,"tags":[7,1e3]}],
		"template":"<i>{{ .sample_id }}|{{ .weight }}|{{ index .tags 0 }}|{{ .lot }}|{{ formatInt .weight }}</i>",
		"defaults":{"lot":9007199254740993}
	}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<i>20240117|12.50|7|9007199254740993|13</i>")
	assert.NotContains(t, body, "e+07")
}

func TestLabelHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		renderer   infra.PDFRenderer
		body       string
		wantStatus int
		wantCode   string
		wantIndex  *int
	}{
		{
			name:       "invalid json",
			renderer:   &stubRenderer{},
			body:       `{"records":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeInvalidJSON,
		},
		{
			name:       "missing records",
			renderer:   &stubRenderer{},
			body:       `{"template":"x"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeValidation,
		},
		{
			name:       "template syntax error",
			renderer:   &stubRenderer{},
			body:       `{"records":[{}],"template":"{{ .x "}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeConfiguration,
		},
		{
			name:       "record missing field",
			renderer:   &stubRenderer{},
			body:       `{"records":[{"sample_id":"s01"},{"other":"x"}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   dto.ErrCodeTemplateRender,
			wantIndex:  intPtr(1),
		},
		{
			name:       "barcode rejects input",
			renderer:   &stubRenderer{},
			body:       `{"records":[{"code":"abc"}],"template":"<img src=\"{{ barcode .code \"ean13\" }}\">"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   dto.ErrCodeEncoding,
			wantIndex:  intPtr(0),
		},
		{
			name:       "too many records",
			renderer:   &stubRenderer{},
			body:       `{"records":[{},{},{},{},{},{},{},{},{},{},{}]}`,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   dto.ErrCodeTooManyRecords,
		},
		{
			name:       "engine failure",
			renderer:   &stubRenderer{err: label.NewRenderError(label.ErrCodeRenderFailed, "chrome crashed", nil)},
			body:       threeRecords,
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrCodeRender,
		},
		{
			name:       "engine timeout",
			renderer:   &stubRenderer{err: label.NewRenderError(label.ErrCodeRenderTimeout, "timed out", nil)},
			body:       threeRecords,
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   dto.ErrCodeRenderTimeout,
		},
		{
			name:       "no renderer",
			renderer:   nil,
			body:       threeRecords,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   dto.ErrCodeRendererMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.renderer, nil)
			w := s.do(http.MethodPost, "/api/v1/labels/pdf", tt.body, logger.RequestIDHeader, "req-7")

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-7", resp.Error.RequestID)
			assert.Equal(t, tt.wantIndex, resp.Error.RecordIndex)
		})
	}
}

func TestLabelHandler_ListSymbologies(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := s.do(http.MethodGet, "/api/v1/labels/symbologies", "")
	require.Equal(t, http.StatusOK, w.Code)

	var names []string
	for _, item := range decode(t, w).Data.([]any) {
		names = append(names, item.(map[string]any)["name"].(string))
	}
	assert.Contains(t, names, "code128")
	assert.Contains(t, names, "ean13")
	assert.Contains(t, names, "qrcode")
}

func TestLabelHandler_Auth(t *testing.T) {
	tokens := auth.NewTokenService(config.AuthConfig{
		Secret:          "test-secret-key-at-least-32-chars",
		Issuer:          "labelprint",
		TokenExpiration: time.Hour,
	})
	s := newTestServer(t, &stubRenderer{}, middleware.BearerAuth(tokens, nil))

	w := s.do(http.MethodPost, "/api/v1/labels/pdf", threeRecords)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, _, err := tokens.Issue("lims")
	require.NoError(t, err)
	w = s.do(http.MethodPost, "/api/v1/labels/pdf", threeRecords, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)

	readOnly, _, err := tokens.Issue("viewer", auth.ScopeRead)
	require.NoError(t, err)
	w = s.do(http.MethodPost, "/api/v1/labels/pdf", threeRecords, "Authorization", "Bearer "+readOnly)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func intPtr(i int) *int { return &i }
