// Package history persists completed transfer requests in a SQLite database
// so their outcomes survive daemon restarts.
package history
