// Package logging assembles the slog loggers used across handcut.
//
// Console output goes through tint (colored only on terminals) while an
// optional per-run JSON file captures the same records for later inspection.
// Context helpers tag lines with run IDs, stages, and frame indices so a
// detection run can be followed end to end.
package logging
