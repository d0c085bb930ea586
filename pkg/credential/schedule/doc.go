// Package schedule runs credential exports on a cron schedule.
//
// Each run builds a fresh exporter, moves the finished archive into the
// configured output directory and keeps only the newest keep_last archives
// there. Retention applies to export archives only; the credential store is
// never modified.
package schedule
