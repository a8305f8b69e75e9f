// Package paths validates user-supplied relative paths against the two
// configured pane roots (downloads and media). Resolution is side-effect free:
// it normalizes separators, collapses dot segments, and guarantees the result
// stays at or below its base root so request handlers can never be steered
// outside the managed trees.
package paths
