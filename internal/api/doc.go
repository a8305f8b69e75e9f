// Package api defines the wire types shared by the daemon's HTTP surface and
// the CLI client, conversion between wire requests and engine requests, and
// server-sent-events framing for transfer progress.
package api
