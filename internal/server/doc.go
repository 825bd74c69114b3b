// Package server hosts the VidTube API and media library from a single HTTP server.
//
// The server builds a consistent middleware chain of request IDs, security
// headers, CORS, rate limiting, metrics, audit, logging, and session auth so
// handlers all share common protections and instrumentation.
package server
