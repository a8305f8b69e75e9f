// Package permissions normalizes ownership and mode bits on created files and
// directories. Container and NAS deployments expose media shares with fixed
// uid/gid expectations, so every path the transfer engine writes is chmod'd
// (and optionally chown'd) to the configured values.
package permissions
