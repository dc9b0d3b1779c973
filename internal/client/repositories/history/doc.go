// Package history keeps a local record of submitted check-ins so the CLI can
// list past jobs and resume polling after a restart.
//
// Rows are keyed by job id. Save inserts or replaces a row; UpdateStatus
// records the latest polled sample. Terminal rows are never moved back to a
// non-terminal status.
package history
