// Package preflight provides readiness checks for the binaries, directories
// and services a detection run depends on.
//
// The CLI "handcut check" command prints every result. The workflow runner
// calls RunAll before starting a run and refuses to start when a required
// check fails, so a missing ffmpeg or a bad API key is reported before any
// frames are extracted.
package preflight
