// Package config loads restkit configuration.
//
// Values come from a YAML file, then a .env file, then the environment.
// Environment variables use the service name as prefix with nested keys
// joined by underscores:
//
//	RESTKIT_CLIENT_SITE=https://api.example.com
//	RESTKIT_CLIENT_TIMEOUT=5s
//	RESTKIT_LOGGING_LEVEL=debug
//
// Usage:
//
//	var cfg config.Config
//	if err := config.LoadConfig("restkit", &cfg); err != nil { ... }
//	cfg.ApplyDefaults()
package config
