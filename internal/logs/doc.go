// Package logs reads the per-run JSON log files written by the logging
// package. The CLI uses it to show the newest run log, follow it while a
// detection is running, and pick out the lines of a single run.
package logs
