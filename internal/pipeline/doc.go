// Package pipeline runs one analysis over a batch of raw order rows.
//
// A run normalizes every row into an immutable snapshot, then runs the
// profiler, the configured aggregations, customer segmentation, trend
// extraction and discount analysis concurrently over that snapshot:
//
//	cfg, _ := pipeline.DefaultConfig()
//	p, err := pipeline.New(cfg, logger, pipeline.Options{Metrics: metrics})
//	if err != nil {
//		// *errors.ConfigurationError lists every invalid parameter
//	}
//	result, err := p.Run(ctx, rows)
//
// Normalization is the only ordering barrier. Rows that fail validation are
// quarantined and reported in the Result; when none survive, Run fails with
// an EmptySnapshotError carrying the quarantine list.
//
// An AnalysisCache passed in Options memoizes analyses per snapshot and
// configuration fingerprint for a fixed TTL.
package pipeline
