// Package workflow drives one detection run end to end.
//
// A Runner probes the source for its duration when none is given, runs the
// boundary detector, formats the accepted boundaries as hand timecodes,
// hands the finished run to the store, and sends notifications. Every run
// gets a fresh id that is stamped onto the context so each log line of the
// run can be correlated.
package workflow
