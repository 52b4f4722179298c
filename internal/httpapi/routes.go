package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/expense-approval/internal/config"
	"github.com/mautops/expense-approval/internal/httpapi/identity"
	"github.com/mautops/expense-approval/internal/httpapi/middleware"
	"github.com/mautops/expense-approval/internal/lifecycle"
	"github.com/mautops/expense-approval/internal/metrics"
	"github.com/mautops/expense-approval/internal/search"
	"github.com/sirupsen/logrus"
)

// RegisterRoutes builds the full gin engine: middleware chain, the
// expense controller's routes, and the ambient health/metrics endpoints.
func RegisterRoutes(
	cfg *config.Config,
	log *logrus.Logger,
	resolver *identity.Resolver,
	lc *lifecycle.Service,
	sr *search.Service,
	db HealthChecker,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Trace())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.RateLimit(cfg.RateLimit))
	r.Use(middleware.RequestLog(log))
	r.Use(middleware.Actor(resolver))

	r.Use(metricsMiddleware())

	r.GET("/healthz", healthHandler(db))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	controller := NewExpenseController(lc, sr)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RequireActor())
	{
		v1.POST("/expenses", controller.Create)
		v1.GET("/expenses", controller.List)
		v1.GET("/expenses/export.csv", controller.ExportCSV)
		v1.GET("/expenses/:id", controller.Get)
		v1.POST("/expenses/:id/submit", controller.Submit)
		v1.POST("/expenses/:id/approve", controller.Approve)
		v1.POST("/expenses/:id/reject", controller.Reject)
		v1.GET("/expenses/:id/audit-logs", controller.AuditLog)
	}

	return r
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.RecordAPIRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start).Seconds())
	}
}

// HealthChecker is the subset of database.CheckHealth this package needs.
type HealthChecker interface {
	Ping() error
}

func healthHandler(db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
