package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/telemetry"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/interfaces/http/dto"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/interfaces/http/handler"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/interfaces/http/middleware"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/tests/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter_Defaults(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
	assert.Empty(t, r.middleware)
}

func TestRouter_Setup(t *testing.T) {
	engine := gin.New()
	var order []string
	mount := func(name string) RouteRegistrar {
		return RegistrarFunc(func(rg *gin.RouterGroup) {
			order = append(order, name)
			rg.GET("/"+name, func(c *gin.Context) { c.String(http.StatusOK, name) })
		})
	}

	api := NewRouter(engine, WithAPIVersion("v2")).
		Register(mount("customers")).
		Register(mount("invoices")).
		Setup()

	assert.Equal(t, "/api/v2", api.BasePath())
	assert.Equal(t, []string{"customers", "invoices"}, order)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/invoices", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "invoices", w.Body.String())
}

func TestRouter_GroupMiddleware(t *testing.T) {
	engine := gin.New()
	tag := func(c *gin.Context) {
		c.Header("X-Ledger-API", "1")
		c.Next()
	}
	NewRouter(engine, WithGroupMiddleware(tag)).
		Register(RegistrarFunc(func(rg *gin.RouterGroup) {
			rg.GET("/customers", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		})).
		Setup()
	engine.GET("/outside", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil))
	assert.Equal(t, "1", w.Header().Get("X-Ledger-API"))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/outside", nil))
	assert.Empty(t, w.Header().Get("X-Ledger-API"))
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newTestEngine(t *testing.T, cfg EngineConfig) *gin.Engine {
	t.Helper()
	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	return engine
}

func TestNewEngine_RejectsInvalidTrustedProxy(t *testing.T) {
	_, err := NewEngine(EngineConfig{TrustedProxies: []string{"not-an-ip"}})
	assert.Error(t, err)
}

func TestNewEngine_UnknownRouteAndMethod(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{CORS: middleware.DefaultCORSConfig()})
	engine.GET("/api/v1/invoices", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := testutil.PerformRequest(t, engine, http.MethodGet, "/api/v1/nope", nil,
		map[string]string{middleware.HeaderRequestID: "req-404"})
	resp := testutil.AssertErrorResponse(t, w, http.StatusNotFound, dto.ErrCodeNotFound)
	assert.Equal(t, "req-404", resp.Error.RequestID)
	assert.Equal(t, "req-404", w.Header().Get(middleware.HeaderRequestID))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	w = testutil.PerformRequest(t, engine, http.MethodPut, "/api/v1/invoices", nil, nil)
	testutil.AssertErrorResponse(t, w, http.StatusMethodNotAllowed, dto.ErrCodeMethodNotAllowed)
}

func TestNewEngine_RecoversPanics(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{})
	engine.GET("/boom", func(c *gin.Context) { panic(errors.New("boom")) })

	w := testutil.PerformRequest(t, engine, http.MethodGet, "/boom", nil, nil)
	testutil.AssertErrorResponse(t, w, http.StatusInternalServerError, dto.ErrCodeInternal)
}

func TestNewEngine_BodyLimit(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{MaxBodySize: 16})
	engine.POST("/echo", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := testutil.PerformRequest(t, engine, http.MethodPost, "/echo",
		map[string]string{"notes": "far more than sixteen bytes"}, nil)
	testutil.AssertErrorResponse(t, w, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge)
}

func TestOpsGroup(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := telemetry.NewHTTPMetrics(reg)
	require.NoError(t, err)

	engine := newTestEngine(t, EngineConfig{Metrics: metrics})
	OpsGroup(handler.NewHealthHandler(pinger{}, "test", 0), reg).RegisterRoutes(&engine.RouterGroup)
	engine.GET("/api/v1/customers", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := testutil.PerformRequest(t, engine, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.PerformRequest(t, engine, http.MethodGet, "/api/v1/customers", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.PerformRequest(t, engine, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `arledger_http_requests_total{method="GET",route="/api/v1/customers",status="200"} 1`)
	assert.NotContains(t, body, `route="/health"`)
}

func TestOpsGroup_WithoutGatherer(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{})
	OpsGroup(handler.NewHealthHandler(pinger{err: errors.New("down")}, "test", 0), nil).RegisterRoutes(&engine.RouterGroup)

	w := testutil.PerformRequest(t, engine, http.MethodGet, "/health", nil, nil)
	testutil.AssertErrorResponse(t, w, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable)

	w = testutil.PerformRequest(t, engine, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOpsGroup_SwaggerUI(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{})
	OpsGroup(handler.NewHealthHandler(pinger{}, "test", 0), nil, WithSwaggerUI(true)).RegisterRoutes(&engine.RouterGroup)

	w := testutil.PerformRequest(t, engine, http.MethodGet, "/swagger/index.html", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.PerformRequest(t, engine, http.MethodGet, "/swagger/doc.json", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"/payments"`)
	assert.Contains(t, body, `"/reports/outstanding"`)
	assert.Contains(t, body, `"/api/v1"`)
}

func TestOpsGroup_SwaggerUIDisabled(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{})
	OpsGroup(handler.NewHealthHandler(pinger{}, "test", 0), nil, WithSwaggerUI(false)).RegisterRoutes(&engine.RouterGroup)

	w := testutil.PerformRequest(t, engine, http.MethodGet, "/swagger/index.html", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
