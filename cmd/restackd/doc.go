// Command restackd runs the restack daemon: it validates the configured
// panes, opens the transfer history store, and serves the HTTP API until
// interrupted.
package main
