package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alitto/pond/v2"

	"salespulse/pkg/contracts/domain"
)

// Loader reads raw order rows from input files. Files are parsed concurrently
// on a bounded pool and concatenated in argument order.
type Loader struct {
	logger *slog.Logger
	sheet  string
	pool   pond.ResultPool[[]domain.RawRow]
}

// NewLoader creates a loader with the given parallelism. sheet selects a
// workbook sheet by name; empty means auto-detect.
func NewLoader(logger *slog.Logger, workers int, sheet string) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	return &Loader{
		logger: logger.With(slog.String("component", "loader")),
		sheet:  sheet,
		pool:   pond.NewResultPool[[]domain.RawRow](workers),
	}
}

// Load parses every path and returns the rows in file order.
func (l *Loader) Load(ctx context.Context, paths []string) ([]domain.RawRow, error) {
	group := l.pool.NewGroupContext(ctx)

	for _, path := range paths {
		path := path
		group.SubmitErr(func() ([]domain.RawRow, error) {
			rows, err := ParseFile(path, l.sheet)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
			l.logger.InfoContext(ctx, "input file parsed",
				slog.String("path", path),
				slog.Int("rows", len(rows)))
			return rows, nil
		})
	}

	results, err := group.Wait()
	if err != nil {
		return nil, err
	}

	var total int
	for _, rows := range results {
		total += len(rows)
	}
	all := make([]domain.RawRow, 0, total)
	for _, rows := range results {
		all = append(all, rows...)
	}
	return all, nil
}

// Close waits for in-flight parses and releases the pool.
func (l *Loader) Close() {
	l.pool.StopAndWait()
}
