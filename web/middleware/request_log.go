package middleware

import (
	"strconv"
	"time"

	"problem-relay/metrics"
	"problem-relay/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an ID, logs it once it completes and
// records it in the metrics.
func RequestLogger(logger *zap.Logger, recorder metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = utils.GenerateRequestID()
		}
		c.Header(RequestIDHeader, requestID)
		c.Set("requestID", requestID)
		c.Set("logger", logger.With(zap.String("request_id", requestID)))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)
		recorder.ObserveRequest(c.Request.Method, route, strconv.Itoa(status), latency.Seconds())

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
		}
		if status >= 500 {
			logger.Warn("Request completed with server error", fields...)
			return
		}
		logger.Debug("Request completed", fields...)
	}
}
