// Package logger provides structured zerolog logging for the service, its
// CLI commands and the test harness.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("music")
//	log.Info("Band created", logger.Fields("band_id", band.ID))
package logger
