// Command restack is the CLI companion to restackd. It runs one-shot
// transfers directly against the configured panes and queries the daemon for
// status and transfer history.
package main
