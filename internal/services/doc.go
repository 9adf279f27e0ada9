// Package services defines shared utilities consumed by the detection pipeline
// stages and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, frame indices, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures so
//     the CLI can report them with a stable exit code.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
