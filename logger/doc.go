// Package logger provides structured logging over zerolog.
//
// Connections log one debug line per request and one per response, and
// errors for transport failures. A nil *Logger is never passed around:
// components fall back to Nop().
//
//	logging:
//	  level: debug
//	  format: console
//
//	log := logger.New(&cfg.Logging, "restkit").WithComponent("connection")
//	log.Debug("GET https://api.example.com/users")
package logger
