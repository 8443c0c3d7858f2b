// Package analytics derives the business analyses from a normalized snapshot.
//
// Four independent components read the same read-only snapshot and never
// depend on each other's output, so they may run concurrently:
//
//   - Aggregator rolls records up by ordered dimension tuples.
//   - Segmenter scores customers by recency, frequency and monetary value and
//     labels them from an ordered rule table.
//   - TrendExtractor builds zero-filled calendar series with period deltas and
//     per-category seasonal peaks.
//   - DiscountAnalyzer bins records by discount and relates discount to margin.
//
// Degenerate numeric conditions (zero sale, empty bands, undefined correlation)
// are reported as domain.Warning values inside each result. They are never
// returned as errors and never replaced by zeros.
//
// Each component checks its context while scanning and returns the context
// error with no partial result when cancelled.
package analytics
