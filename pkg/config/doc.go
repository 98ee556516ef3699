// Package config loads application configuration from environment variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11: the
// default .env file is read once per process, then env.Parse fills any struct
// annotated with `env` field tags. Every infrastructure package in this
// repository declares its own Config struct and is populated through this
// package at startup.
//
//	type DatabaseConfig struct {
//	    Host string `env:"DB_HOST,required"`
//	    Port int    `env:"DB_PORT" envDefault:"5432"`
//	}
//
//	var db DatabaseConfig
//	config.MustLoad(&db)
//
// Errors are sentinel values comparable with errors.Is: ErrParsingConfig and
// ErrNilPointer.
package config
