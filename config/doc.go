// Package config loads service configuration from config.yml, .env files
// and environment variables.
//
// Values are layered in this order: YAML file, process environment, then the
// resolved .env file. When ENVIRONMENT is set, the loader prefers
// .env.<environment> over .env, so the test suite picks up .env.test.
//
//	var cfg app.Config
//	if err := config.LoadConfig("gotemplate", &cfg); err != nil {
//	    return err
//	}
//
// Environment variables map onto nested keys by splitting on underscores:
// DATABASE_DSN binds database.dsn.
package config
