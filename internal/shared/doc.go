// Package shared holds code used across salespulse packages that belongs to
// no single layer.
//
// The testutil subpackage provides order fixtures built with a fluent
// builder and a buffered slog handler for asserting on log output:
//
//	rows := testutil.RawRows(
//	    testutil.NewOrder("O-1", "P-1", "C-1").Sale(100).Profit(20),
//	    testutil.NewOrder("O-2", "P-2", "C-2").Discount(1.5),
//	)
//	logger, handler := testutil.NewTestLogger(t)
//
// Nothing here may import business packages other than pkg/contracts.
package shared
