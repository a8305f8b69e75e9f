// Package transfer implements the batch file-transfer engine that copies or
// moves lists of (source, destination) pairs between the downloads and media
// roots.
//
// The orchestrator drives each request strictly sequentially: it validates
// both paths against their roots, materializes destination directories level
// by level with permission normalization at every segment, streams file bytes
// with byte-level progress callbacks, prefers in-place rename for moves with a
// copy-then-delete fallback, and tidies emptied source directories afterwards.
// Per-request state (counters, error list, created-directory cache) lives in a
// Session value passed explicitly through every call, so concurrent requests
// are independent by construction.
//
// Progress surfaces as a tagged union of event values; the api package maps
// each variant onto its wire shape. Byte progress is throttled to one forward
// per 100ms (or on completion) while throughput is smoothed with an
// exponential moving average fed by every chunk.
package transfer
