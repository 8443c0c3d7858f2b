package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"salespulse/internal/config"
	apperrors "salespulse/internal/errors"
	"salespulse/internal/infrastructure"
)

// ExitCode is the process status returned by a command
type ExitCode int

const (
	exitCodeSuccess       ExitCode = 0
	exitCodeError         ExitCode = 1
	exitCodeConfiguration ExitCode = 2
	exitCodeEmptySnapshot ExitCode = 3
	exitCodeCancelled     ExitCode = 130
)

// exitCodeFor maps a command error to the process status.
func exitCodeFor(err error) ExitCode {
	var cfgErr *apperrors.ConfigurationError
	var emptyErr *apperrors.EmptySnapshotError
	switch {
	case err == nil:
		return exitCodeSuccess
	case errors.As(err, &cfgErr):
		return exitCodeConfiguration
	case errors.As(err, &emptyErr):
		return exitCodeEmptySnapshot
	case errors.Is(err, context.Canceled):
		return exitCodeCancelled
	default:
		return exitCodeError
	}
}

// rootOptions are the flags shared by every command. Each flag overrides
// the matching config key when set.
type rootOptions struct {
	configFile    string
	logLevel      string
	outputDir     string
	granularity   string
	referenceDate string
	segmentRules  string
	sheet         string
	workers       int
	noCSV         bool
	noXLSX        bool
	quiet         bool
	opsEnabled    bool
	opsAddr       string
}

// runtime carries what a command needs after configuration is resolved
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "salespulse",
		Short: "Retail order analytics",
		Long: `salespulse reads order exports (.xlsx or .csv), quarantines malformed rows
and reports category performance, customer segments, seasonal trends and
discount sensitivity as CSV files, an Excel workbook and a console summary.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (default: salespulse.yaml if present)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVarP(&opts.outputDir, "out", "o", "", "report output directory")
	flags.StringVar(&opts.granularity, "granularity", "", "trend period: day, week, month, quarter, year")
	flags.StringVar(&opts.referenceDate, "reference-date", "", "recency reference date (YYYY-MM-DD)")
	flags.StringVar(&opts.segmentRules, "segment-rules", "", "segment rule table (YAML)")
	flags.StringVar(&opts.sheet, "sheet", "", "workbook sheet to read")
	flags.IntVar(&opts.workers, "workers", 0, "files parsed concurrently")
	flags.BoolVar(&opts.noCSV, "no-csv", false, "skip CSV reports")
	flags.BoolVar(&opts.noXLSX, "no-xlsx", false, "skip the Excel workbook")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "skip the console summary")
	flags.BoolVar(&opts.opsEnabled, "ops", false, "serve /healthz and /metrics while running")
	flags.StringVar(&opts.opsAddr, "ops-addr", "", "ops endpoint address")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newProfileCmd(opts),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration, applies flag overrides and builds the logger.
func (o *rootOptions) setup(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	o.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &runtime{cfg: cfg, logger: logger}, nil
}

func (o *rootOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if changed("out") {
		cfg.Output.Dir = o.outputDir
	}
	if changed("granularity") {
		cfg.Pipeline.PeriodGranularity = o.granularity
	}
	if changed("reference-date") {
		cfg.Pipeline.ReferenceDate = o.referenceDate
	}
	if changed("segment-rules") {
		cfg.Pipeline.SegmentRulesFile = o.segmentRules
	}
	if changed("sheet") {
		cfg.Input.Sheet = o.sheet
	}
	if changed("workers") {
		cfg.Input.Workers = o.workers
	}
	if o.noCSV {
		cfg.Output.CSV = false
	}
	if o.noXLSX {
		cfg.Output.XLSX = false
	}
	if o.quiet {
		cfg.Output.Console = false
	}
	if o.opsEnabled {
		cfg.Ops.Enabled = true
	}
	if changed("ops-addr") {
		cfg.Ops.Addr = o.opsAddr
	}
}
