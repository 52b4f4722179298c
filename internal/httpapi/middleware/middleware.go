// Package middleware holds the gin middleware chain this service's HTTP
// boundary is assembled from: trace propagation, CORS, rate limiting,
// structured request logging, and actor resolution.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mautops/expense-approval/internal/config"
	"github.com/mautops/expense-approval/internal/httpapi/identity"
	"github.com/mautops/expense-approval/internal/trace"
	"github.com/sirupsen/logrus"
	limiter "github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
)

// ActorContextKey is the gin context key the actor resolved from the
// request's bearer token is stored under.
const ActorContextKey = "expense.actor"

// Trace assigns a Context to every request, reusing the inbound X-Trace-Id
// header as the trace id when present and generating a fresh one otherwise,
// and echoes it back as a response header for client-side correlation.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := trace.WithTraceID(c.GetHeader("X-Trace-Id"))
		c.Request = c.Request.WithContext(trace.Into(c.Request.Context(), tc))
		c.Header("X-Trace-Id", tc.TraceID)
		c.Next()
	}
}

// CORS builds the gin-contrib/cors middleware from CORSConfig.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     cfg.AllowedMethods,
		AllowHeaders:     cfg.AllowedHeaders,
		AllowCredentials: true,
		MaxAge:           time.Duration(cfg.MaxAge) * time.Second,
	}
	return cors.New(c)
}

// RateLimit builds a fixed-window limiter keyed by client IP using
// ulule/limiter/v3's in-memory store: each IP may make RequestsPerMinute
// requests per one-minute window. RateLimitConfig.Burst is not used. A
// distributed deployment would swap in the redis store without touching
// call sites.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	rate := limiter.Rate{
		Period: time.Minute,
		Limit:  int64(cfg.RequestsPerMinute),
	}
	store := memorystore.NewStore()
	instance := limiter.New(store, rate)
	return ginlimiter.NewMiddleware(instance)
}

// RequestLog logs each request's method, path, status, and latency
// through logrus, stamping the trace id so log lines correlate with the
// ErrorBody.TraceID a client sees.
func RequestLog(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		tc := trace.From(c.Request.Context())
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"latency":  time.Since(start).String(),
			"clientIP": c.ClientIP(),
			"traceId":  tc.TraceID,
		}).Info("request completed")
	}
}

// Actor resolves the bearer token on every request into a domain.Actor
// via the identity.Resolver and stores it on the gin context. Endpoints
// that require an authenticated actor read it back with ActorContextKey;
// a missing/invalid token leaves nothing stored rather than short-circuiting
// here, since not every route requires authentication (health/metrics do
// not). Routes that do require it are guarded by RequireActor.
func Actor(resolver *identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		var token string
		const prefix = "Bearer "
		if len(header) > len(prefix) && header[:len(prefix)] == prefix {
			token = header[len(prefix):]
		}

		actor, err := resolver.ResolveToken(token)
		if err == nil {
			c.Set(ActorContextKey, actor)
		}
		c.Next()
	}
}

// SecurityHeaders sets the standard set of defensive response headers:
// MIME-sniffing protection, clickjacking protection, HSTS, and a
// conservative referrer policy. Content-Security-Policy is left unset
// since this API serves JSON, not HTML, to a browser.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// RequireActor 401s any request that Actor did not manage to resolve.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ActorContextKey); !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
