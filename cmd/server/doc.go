// Package main is the entry point for the bash server.
//
// The server exposes persistent shell session execution through a small
// tool surface consumed by an external tool-calling client.
//
// The server provides:
//   - Tool dispatch over REST (/services/execute)
//   - Session registry with idle eviction
//   - Foreground commands with deadlines, background jobs with tracking
//   - File transfer scoped to session working directories
//   - Rate limiting and Prometheus metrics
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server -port 8090
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown; all sessions are killed so no
//     process outlives the server. State is in-memory only and does not
//     survive restarts.
package main
