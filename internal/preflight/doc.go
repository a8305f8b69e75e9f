// Package preflight validates the environment before the daemon serves
// transfers: both panes must exist and be readable and writable.
package preflight
