// Package trace tags every request with an id, a request-scoped logger and a
// structured access log line.
package trace

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"planledger/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID is echoed back, and honoured when the client sends one.
	HeaderRequestID = "X-Request-ID"
)

// Middleware handles request tracing and logging
type Middleware struct {
	logger  *log.Logger
	access  *log.StructuredLogger
	metrics *Metrics
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests       int64
	AverageResponseTime int64 // in microseconds
}

// NewMiddleware creates a new trace middleware
func NewMiddleware(logger *log.Logger) *Middleware {
	if logger == nil {
		logger = log.ForComponent(log.ComponentTrace)
	}
	return &Middleware{
		logger:  logger,
		access:  log.NewStructuredLogger(logger),
		metrics: &Metrics{},
	}
}

// Handler returns the gin middleware.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = GenerateRequestID()
		}
		c.Header(HeaderRequestID, requestID)

		reqLogger := m.logger.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(c.Request.Context(), RequestIDKey, requestID)
		ctx = log.IntoContext(ctx, reqLogger)
		c.Request = c.Request.WithContext(ctx)

		total := atomic.AddInt64(&m.metrics.TotalRequests, 1)

		c.Next()

		durationMs := time.Since(start).Milliseconds()
		// Running mean in microseconds.
		prev := atomic.LoadInt64(&m.metrics.AverageResponseTime)
		atomic.StoreInt64(&m.metrics.AverageResponseTime, prev+(durationMs*1000-prev)/total)

		fields := log.NewFields().
			WithRequestID(requestID).
			WithClientIP(c.ClientIP()).
			WithHTTPRequest(c.Request.Method, c.Request.URL.Path, c.Request.URL.RawQuery, c.Request.UserAgent())
		if owner := c.GetString("owner_id"); owner != "" {
			fields = fields.WithOwner(owner)
		}
		if len(c.Errors) > 0 {
			fields = fields.WithError(c.Errors.Last().Err)
		}
		m.access.LogHTTPEnd(ctx, fields, c.Writer.Status(), durationMs)
	}
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:       atomic.LoadInt64(&m.metrics.TotalRequests),
		AverageResponseTime: atomic.LoadInt64(&m.metrics.AverageResponseTime),
	}
}
