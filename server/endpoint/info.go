package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kbukum/gotemplate/component"
	"github.com/kbukum/gotemplate/version"
)

var startTime = time.Now()

// Describer lists the components the service runs.
type Describer func() []component.Description

// Info reports build information, uptime and the running components.
func Info(serviceName string, describe Describer) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"service": serviceName,
			"build":   version.Get(),
			"uptime":  time.Since(startTime).Round(time.Second).String(),
		}
		if describe != nil {
			body["components"] = describe()
		}
		c.JSON(http.StatusOK, body)
	}
}

// Version reports the build version string.
func Version() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": version.Get().String()})
	}
}

// Metrics exposes gatherer in the Prometheus text format. A nil gatherer
// uses the default registry.
func Metrics(gatherer prometheus.Gatherer) gin.HandlerFunc {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
