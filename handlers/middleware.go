package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"UserManagerService/response"
)

// Metrics holds the Prometheus counters recorded for every gateway request.
type Metrics struct {
	EndpointCalls *prometheus.CounterVec
	Errors        *prometheus.CounterVec
}

// NewMetrics creates the gateway counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		EndpointCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "usermanager_endpoint_calls_total",
			Help: "Total number of calls per gateway endpoint.",
		}, []string{"endpoint"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "usermanager_errors_total",
			Help: "Total number of gateway responses with an error status.",
		}, []string{"endpoint"}),
	}
	if err := reg.Register(m.EndpointCalls); err != nil {
		return nil, err
	}
	if err := reg.Register(m.Errors); err != nil {
		return nil, err
	}
	return m, nil
}

// MetricsHandler counts every call per route, and every response with a status of 400 or above as an error.
func MetricsHandler(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.EndpointCalls.WithLabelValues(endpoint).Inc()
		if c.Writer.Status() >= http.StatusBadRequest {
			m.Errors.WithLabelValues(endpoint).Inc()
		}
	}
}

// RateLimiter rejects requests beyond the limiter's budget.
// A rejected request gets HTTP status code 429 (Too Many Requests) and a JSON message.
func RateLimiter(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Failed("The API is at capacity, try again later."))
			return
		}
		c.Next()
	}
}

// CORS permits every origin and answers preflight requests with 200 and no body.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization, Cache-Control")
		h.Set("Access-Control-Allow-Methods", "DELETE, GET, POST, PUT, PATCH, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(logrus.Fields{
			"request": c.Request.Method + " " + c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("request failed")
			return
		}
		entry.Info("request handled")
	}
}
