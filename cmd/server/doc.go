// Package main is the entry point for the ProfileDeck backend.
//
// ProfileDeck runs one isolated browsing session per profile. Each session
// has its own cookie partition and proxy, and exactly one session is shown
// in the window at a time.
//
// Configuration:
//   - Environment variables (12-factor, see internal/infrastructure/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -profiles ./profiles
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
