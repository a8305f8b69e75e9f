// Package logging builds the slog loggers used by the daemon and CLI.
//
// It offers a console handler that renders compact single-line records with
// the component attribute hoisted into the message prefix, plus a JSON handler
// for machine-readable output. Attr helpers (String, Int64, Error, ...) keep
// call sites terse and consistent. Construct loggers through NewFromConfig so
// daemon log files and format/level selection follow the configuration.
package logging
