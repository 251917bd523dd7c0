package endpoint

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/gotemplate/component"
)

// HealthChecker returns health status for registered components.
type HealthChecker func(ctx context.Context) []component.Health

// Health reports {"status":"OK","environment":...} while every component is
// healthy or degraded, and 503 with status "UNAVAILABLE" otherwise.
func Health(environment string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, httpStatus := "OK", http.StatusOK
		var components []component.Health
		if checker != nil {
			components = checker(c.Request.Context())
			for _, ch := range components {
				if ch.Status == component.StatusUnhealthy {
					status, httpStatus = "UNAVAILABLE", http.StatusServiceUnavailable
					break
				}
			}
		}

		body := gin.H{"status": status, "environment": environment}
		if len(components) > 0 {
			body["components"] = components
		}
		c.JSON(httpStatus, body)
	}
}

// Liveness answers 200 as long as the process serves requests.
func Liveness() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	}
}

// Readiness answers 503 until no component reports unhealthy.
func Readiness(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker != nil {
			for _, ch := range checker(c.Request.Context()) {
				if ch.Status == component.StatusUnhealthy {
					c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "component": ch.Name})
					return
				}
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
