// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Every pipeline lifecycle event and checkpoint logs through this package
// with structured fields; nothing in the codebase writes to the standard
// log package.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Export started", zap.String("run_id", runID))
//	logger.Error("Stage failed", zap.Error(err))
package logging
