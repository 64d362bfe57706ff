package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"UserManagerService/response"
	"UserManagerService/store"
	"UserManagerService/validation"
)

// Options configures the gateway router.
type Options struct {
	Store   *store.Store
	Schemas map[string]*validation.Schema
	Logger  *logrus.Logger
	// Registry receives the gateway counters and backs /metrics. A fresh registry is used when nil.
	Registry *prometheus.Registry
	// RateLimit is the sustained requests per second; zero or less disables limiting.
	RateLimit float64
	RateBurst int
	// StaticDir, when set, is served for GET requests no API route matches.
	StaticDir string
}

// NewRouter builds the gateway engine.
//
// The following endpoints are available:
//
//  1. GET / - Liveness probe
//  2. GET /api/{resource} - List records
//  3. GET /api/{resource}/{id} - Get a record by id
//  4. POST /api/{resource} - Create a record
//  5. PUT /api/{resource}/{id} - Replace a record
//  6. PATCH /api/{resource}/{id} - Partially update a record
//  7. DELETE /api/{resource}/{id} - Delete a record
//  8. GET /metrics - Display Prometheus metrics
func NewRouter(opts Options) (*gin.Engine, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics, err := NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log), CORS())
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		r.Use(RateLimiter(rate.NewLimiter(rate.Limit(opts.RateLimit), burst)))
	}
	r.Use(MetricsHandler(metrics))

	h := NewResourceHandler(opts.Store, opts.Schemas, log)
	r.GET("/", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		api.GET("/:resource", h.List)
		api.POST("/:resource", h.Create)
		api.GET("/:resource/:id", h.Get)
		api.PUT("/:resource/:id", h.Replace)
		api.PATCH("/:resource/:id", h.Patch)
		api.DELETE("/:resource/:id", h.Delete)
	}

	var static http.Handler
	if opts.StaticDir != "" {
		static = http.FileServer(http.Dir(opts.StaticDir))
	}
	r.NoRoute(func(c *gin.Context) {
		if static != nil && (c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead) {
			static.ServeHTTP(c.Writer, c.Request)
			return
		}
		c.JSON(http.StatusNotFound, response.Failed("Route not found"))
	})
	return r, nil
}
