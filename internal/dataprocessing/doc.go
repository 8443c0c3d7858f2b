// Package dataprocessing turns raw order rows into the immutable snapshot every
// analysis reads, and profiles its quality.
//
// # Architecture
//
// The package is organized into four components:
//
// 1. Parser and Loader: read raw rows from .xlsx and .csv files
// 2. Normalizer: validates rows against the OrderRecord schema and quarantines failures
// 3. Snapshot: the read-only record set with a content fingerprint
// 4. Profiler: missing rates, cardinality, outliers and duplicate counts
//
// # Usage
//
//	loader := dataprocessing.NewLoader(logger, 4, "")
//	defer loader.Close()
//	rows, err := loader.Load(ctx, []string{"superstore.xlsx"})
//	if err != nil {
//	    return err
//	}
//
//	res, err := dataprocessing.NewNormalizer(logger).Normalize(ctx, rows)
//	if err != nil {
//	    return err
//	}
//	report, err := dataprocessing.NewProfiler(logger, dataprocessing.DefaultProfileOptions()).
//	    Profile(ctx, res.Snapshot, res.Quarantine)
//
// # Data Flow
//
//	Files → Loader → RawRows → Normalizer → Snapshot (+ quarantine) → Profiler / analytics
//
// # Validation
//
// Each row is checked for required fields first, then parsed, then range
// checked. The first failure decides the quarantine reason. Values are never
// imputed and duplicates are kept; the profiler reports them.
package dataprocessing
