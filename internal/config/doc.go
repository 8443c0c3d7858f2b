// Package config loads application configuration for salespulse.
//
// # Configuration Sources
//
// Configuration is layered, later sources overriding earlier ones:
//
//	1. Built-in defaults (Default)
//	2. A YAML file: the path given to Load, else salespulse.yaml or
//	   configs/salespulse.yaml when present
//	3. Environment variables prefixed SALESPULSE_
//
// Only keys present in the file and variables that are set override a
// layer below, so an unrelated environment never resets file values.
//
// # Environment Variables
//
// Nested sections map to underscore-joined names:
//
//	SALESPULSE_LOGGING_LEVEL=debug
//	SALESPULSE_PIPELINE_PERIOD_GRANULARITY=week
//	SALESPULSE_PIPELINE_DISCOUNT_BIN_EDGES=0,0.2,0.5,1
//	SALESPULSE_CACHE_TTL=30m
//	SALESPULSE_OPS_ENABLED=true
//
// Aggregations are list-of-struct values and can only be set in the file.
//
// # Segment Rules
//
// LoadSegmentRules reads a segment rule table from YAML. With no path it
// returns the table embedded from configs/segments.yaml.
//
// # Validation
//
// Load validates logging, input, output, cache, telemetry and ops settings
// with struct tags. Pipeline settings are validated by the pipeline package
// when it builds its configuration, so that every problem is reported as one
// ConfigurationError before any data is read.
package config
