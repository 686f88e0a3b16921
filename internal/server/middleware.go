package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyForge/internal/validation"
)

const (
	headerRequestID = "X-Request-ID"
	headerClientID  = "X-Client-ID"
	ctxRequestID    = "request_id"
)

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		s.metrics.RecordHTTPRequest(c.Request.Method, path, status, elapsed)

		s.log.Info("HTTP",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
			zap.String("request_id", c.GetString(ctxRequestID)),
		)
	}
}

// limitBody обрезает тело запроса по лимиту валидатора.
func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, validation.MaxRequestBytes)
		c.Next()
	}
}

// clientKey ключ лимитера: X-Client-ID или IP клиента.
func clientKey(c *gin.Context) string {
	if id := c.GetHeader(headerClientID); id != "" {
		return "client:" + id
	}
	return "ip:" + c.ClientIP()
}
