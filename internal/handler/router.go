package handler

import (
	"net/http"

	"github.com/crudkit/sampleapi/internal/config"
	"github.com/crudkit/sampleapi/internal/middleware"
	"github.com/crudkit/sampleapi/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the HTTP surface needs. Idempotency and Limiters may
// be nil, which disables the corresponding middleware.
type Deps struct {
	Config      *config.Config
	Samples     *service.SampleService
	APILogs     *service.APILogService
	Retention   *service.RetentionService
	Auth        *service.AuthService
	Idempotency middleware.IdempotencyStore
	Limiters    middleware.LimiterSource
}

// NewRouter builds the engine with the full middleware chain. The request
// logger sits outside the error handler so rendered errors are captured,
// and outside auth so it sees the principal auth installs.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	pages := NewPaginator(cfg.Pagination)

	sampleHandler := NewSampleHandler(d.Samples, pages)
	tokenHandler := NewTokenHandler(d.Auth)
	apiLogHandler := NewAPILogHandler(d.APILogs, d.Retention, cfg.APILog.RetentionDays, pages)

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.APILogger(d.APILogs, cfg.APILog))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.AuthMiddleware(d.Auth))
	r.Use(middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly, "/api/token"))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "sampleapi", "read_only": cfg.Server.ReadOnly})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")

	token := api.Group("/token")
	{
		throttle := noop
		if d.Limiters != nil {
			throttle = middleware.RateLimitMiddleware(d.Limiters)
		}
		token.POST("/", throttle, tokenHandler.Obtain)
		token.POST("/refresh/", throttle, tokenHandler.Refresh)
		token.GET("/info/", middleware.RequireAuth(), tokenHandler.Info)
	}

	samples := api.Group("/sample")
	samples.Use(middleware.RequireAuth())
	{
		create := []gin.HandlerFunc{}
		if d.Idempotency != nil {
			create = append(create, middleware.IdempotencyMiddleware(d.Idempotency))
		}
		create = append(create, sampleHandler.Create)

		samples.GET("/", sampleHandler.List)
		samples.POST("/", create...)
		samples.GET("/:id/", sampleHandler.Get)
		samples.PUT("/:id/", sampleHandler.Replace)
		samples.PATCH("/:id/", sampleHandler.Update)
		samples.DELETE("/:id/", sampleHandler.Delete)
	}

	logs := api.Group("/api-logs")
	logs.Use(middleware.RequireStaff())
	{
		logs.GET("/", apiLogHandler.List)
		logs.GET("/stats/", apiLogHandler.Stats)
		logs.POST("/cleanup/", apiLogHandler.Cleanup)
		logs.GET("/:id/", apiLogHandler.Get)
	}

	return r
}

func noop(c *gin.Context) { c.Next() }
