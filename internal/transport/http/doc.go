// Package http serves the operational endpoint of salespulse: a health
// check reporting the latest pipeline run and a Prometheus scrape target.
//
// The router is built with chi and the middleware package:
//
//	RequestID -> StructuredLogger -> Recoverer -> RateLimiter (optional)
//
// Errors are answered with RFC 7807 problem documents. The endpoint is off
// by default and binds to loopback when enabled.
package http
