package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PostsCreated counts posts accepted by the gateway.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialgrid_posts_created_total",
		Help: "Total number of posts created",
	})

	// PostRejections counts submissions refused by reason (validation, quota, store).
	PostRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialgrid_post_rejections_total",
		Help: "Total number of rejected post submissions by reason",
	}, []string{"reason"})

	// RedisErrors counts failed Redis commands, excluding cache misses.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialgrid_redis_errors_total",
		Help: "Total number of Redis command errors",
	}, []string{"command"})
)

// InitMetrics builds the Fiber Prometheus middleware for serviceName.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware records request metrics, skipping the scrape endpoint itself.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	handler := prom.Middleware
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		return handler(c)
	}
}
