package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	apperrors "salespulse/internal/errors"
	"salespulse/internal/exporter"
	"salespulse/internal/infrastructure"
	"salespulse/internal/pipeline"
	"salespulse/pkg/contracts/domain"
)

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file|dir>...",
		Short: "Run every analysis and write the reports",
		Long: `analyze normalizes the order rows of every input, then profiles them and
computes aggregations, customer segments, trends and discount bins. Reports
are written as CSV files and an Excel workbook in the output directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, opts, args, (*pipeline.Pipeline).Run, exporter.WriteSummary)
		},
	}
}

func newProfileCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <file|dir>...",
		Short: "Report data quality without running the analyses",
		Long: `profile normalizes the order rows of every input and reports field
completeness, numeric distributions, outliers, duplicates and the quarantine.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, opts, args, (*pipeline.Pipeline).Profile, func(w io.Writer, result *pipeline.Result) error {
				return exporter.WriteTables(w, exporter.BuildTables(result))
			})
		},
	}
}

type runFunc func(*pipeline.Pipeline, context.Context, []domain.RawRow) (*pipeline.Result, error)

type printFunc func(io.Writer, *pipeline.Result) error

func runCommand(cmd *cobra.Command, opts *rootOptions, args []string, runPipeline runFunc, printResult printFunc) error {
	rt, err := opts.setup(cmd)
	if err != nil {
		return err
	}
	ctx := infrastructure.ContextWithTraceID(cmd.Context())

	sess, err := startSession(ctx, rt)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	p, err := sess.newPipeline()
	if err != nil {
		return err
	}

	rows, err := sess.load(ctx, args)
	if err != nil {
		return err
	}

	result, err := runPipeline(p, ctx, rows)
	sess.recordRun(ctx, result, err)
	if err != nil {
		var empty *apperrors.EmptySnapshotError
		if errors.As(err, &empty) {
			if rerr := sess.reportEmpty(ctx, cmd.OutOrStdout(), empty); rerr != nil {
				infrastructure.WithError(rt.logger, rerr).WarnContext(ctx, "quarantine_report_failed")
			}
		}
		return err
	}

	written, err := sess.export(ctx, result)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if rt.cfg.Output.Console {
		if err := printResult(out, result); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	if len(written) > 0 {
		fmt.Fprintf(out, "\n%d report files written to %s\n", len(written), rt.cfg.Output.Dir)
	}

	rt.logger.InfoContext(ctx, "command_complete",
		slog.String("command", cmd.Name()),
		slog.String("run_id", result.RunID),
		slog.Int("files_written", len(written)))
	return nil
}
