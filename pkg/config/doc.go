// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11. Every
// component of the service declares its own struct with env tags
// (transport.Config, realtime.Config, pg.Config, ...) and the binary loads
// them at startup:
//
//	if err := config.LoadEnv(".env.local"); err != nil {
//	    return err
//	}
//	var mail transport.Config
//	if err := config.Load(&mail); err != nil {
//	    return err
//	}
//
// Parsed structs are cached per type, so repeated Load calls are cheap and
// return the same values. A failed parse is not cached. ResetCache clears
// the cache, which tests use after changing the environment.
package config
