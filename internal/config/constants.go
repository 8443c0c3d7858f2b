package config

import "time"

// Application constants
const (
	// Application Info
	AppName   = "salespulse"
	EnvPrefix = "SALESPULSE"

	// File Locations
	DefaultConfigFile = "salespulse.yaml"
	DefaultReportsDir = "reports"
	DefaultLogFile    = "logs/salespulse.log"

	// Pipeline Defaults
	DefaultGranularity       = "month"
	DefaultQuantileBandCount = 4
	DefaultZScoreThreshold   = 3.0
	DefaultIQRMultiplier     = 1.5

	// Loading
	DefaultLoadWorkers = 4

	// Cache Settings
	DefaultCacheTTL = 15 * time.Minute

	// Ops Endpoint
	DefaultOpsAddr  = "127.0.0.1:9464"
	HealthEndpoint  = "/healthz"
	MetricsEndpoint = "/metrics"

	// RateLimit is requests per second; zero disables limiting
	DefaultOpsRateLimit    = 20.0
	DefaultOpsRateBurst    = 40
	DefaultShutdownTimeout = 5 * time.Second
)
