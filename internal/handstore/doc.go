// Package handstore persists detection runs and their hand timecodes.
//
// Two backends implement Store: SQLite (the default, one local file opened in
// WAL mode) and PostgreSQL for installations that share the archive database.
// Both keep one row per run and one row per hand, written in a single
// transaction so a run is stored completely or not at all.
package handstore
