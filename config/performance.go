package config

import (
	"time"

	"hotelpro-backend/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SlowRequest is the latency above which a request is flagged.
const SlowRequest = 200 * time.Millisecond

func PerformanceLogger() gin.HandlerFunc {
	log := logger.Performance()
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		entry := log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": latency.Milliseconds(),
		})
		if latency > SlowRequest {
			entry.Warn("slow request")
			return
		}
		entry.Info("request")
	}
}
