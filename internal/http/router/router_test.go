package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apphttp "skaleclub_backend/internal/http"
	"skaleclub_backend/platform/httpkit"
	"skaleclub_backend/platform/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testConfig struct{}

func (testConfig) GetHTTPAddr() string                { return ":0" }
func (testConfig) GetCORSAllowAll() bool              { return false }
func (testConfig) GetCORSOrigins() []string           { return []string{"https://skale.club"} }
func (testConfig) GetCORSAllowCreds() bool            { return false }
func (testConfig) GetJWTAccessSecret() string         { return "secret" }
func (testConfig) GetLeadFormCacheTTL() time.Duration { return time.Minute }
func (testConfig) GetPhoneDefaultRegion() string      { return "US" }
func (testConfig) GetPublicSubmitRatePerMinute() int  { return 30 }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	ctx.Admin.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "admin pong") })
}

func newApp(health apphttp.HealthChecker) *apphttp.App {
	return &apphttp.App{
		Config:  testConfig{},
		Logger:  logger.Discard(),
		Health:  health,
		Modules: []apphttp.Module{pingModule{}},
	}
}

func serve(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthReportsDatabaseState(t *testing.T) {
	if rec := serve(New(newApp(pinger{})), "/api/health"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := serve(New(newApp(pinger{err: errors.New("down")})), "/api/health"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestModulesAreMounted(t *testing.T) {
	engine := New(newApp(nil))

	rec := serve(engine, "/api/v1/ping")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(httpkit.HeaderRequestID) == "" {
		t.Fatal("expected request id header")
	}

	if rec := serve(engine, "/api/v1/admin/ping"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected admin route to require auth, got %d", rec.Code)
	}
}
