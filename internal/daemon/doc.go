// Package daemon coordinates the long-running restack process.
//
// It wires configuration, the history store, and the transfer orchestrator
// into a single lifecycle with flock-based locking to prevent multiple
// instances, and serves the HTTP API the CLI and media manager talk to.
package daemon
