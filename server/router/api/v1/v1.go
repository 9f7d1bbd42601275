package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/timenorm/internal/observability"
	"github.com/hrygo/timenorm/internal/profile"
	"github.com/hrygo/timenorm/plugin/timenorm"
	ratelimit "github.com/hrygo/timenorm/server/middleware"
)

// maxConcurrentBatches bounds batch requests served at once.
const maxConcurrentBatches = 4

type APIV1Service struct {
	Profile *profile.Profile
	Service *timenorm.Service
	Metrics *observability.Metrics

	limiter *ratelimit.RateLimiter
	// batchSemaphore limits concurrent batch requests
	batchSemaphore *semaphore.Weighted
}

func NewAPIV1Service(profile *profile.Profile, service *timenorm.Service, metrics *observability.Metrics) *APIV1Service {
	return &APIV1Service{
		Profile:        profile,
		Service:        service,
		Metrics:        metrics,
		limiter:        ratelimit.NewRateLimiter(profile.RateLimit, profile.RateBurst),
		batchSemaphore: semaphore.NewWeighted(maxConcurrentBatches),
	}
}

// RegisterRoutes registers the HTTP handlers with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	echoServer.GET("/healthz", s.Healthz)

	api := echoServer.Group("/api/v1")
	api.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(_ string) (bool, error) {
			return true, nil
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"*"},
	}))
	api.Use(s.limiter.Middleware())

	api.POST("/resolve", s.Resolve)
	api.POST("/resolve/batch", s.ResolveBatch)
	api.GET("/system/metrics/overview", s.GetMetricsOverview)
}

// NewEchoServer creates an Echo instance with the service routes registered.
func NewEchoServer(s *APIV1Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	s.RegisterRoutes(e)
	return e
}

// Healthz reports liveness.
// GET /healthz
func (s *APIV1Service) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"locale":  s.Service.Locale(),
		"version": s.Profile.Version,
	})
}
