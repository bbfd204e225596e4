// Package services defines shared utilities consumed by the identification
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp scan session IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that let the HTTP layer
//     translate failures into consistent status codes.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
