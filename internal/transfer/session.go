package transfer

import "sort"

// Session carries the mutable state of one transfer request: outcome
// counters, the ordered error list, the created-directory cache, and the
// source parent directories considered for cleanup. It is created when the
// request begins and discarded when the response stream closes; nothing in
// it survives across requests.
type Session struct {
	Completed   int
	Failed      int
	Errors      []string
	BytesCopied int64

	createdDirs   map[string]struct{}
	sourceParents map[string]struct{}
}

// NewSession returns an empty session for a new request.
func NewSession() *Session {
	return &Session{
		createdDirs:   make(map[string]struct{}),
		sourceParents: make(map[string]struct{}),
	}
}

// RecordError appends message to the error list and bumps the failed counter.
func (s *Session) RecordError(message string) {
	s.Errors = append(s.Errors, message)
	s.Failed++
}

// DirCreated reports whether dir was already materialized in this session.
func (s *Session) DirCreated(dir string) bool {
	_, ok := s.createdDirs[dir]
	return ok
}

// MarkDirCreated records dir as materialized for the rest of the session.
func (s *Session) MarkDirCreated(dir string) {
	s.createdDirs[dir] = struct{}{}
}

// NoteSourceParent remembers the parent directory of a validated source so
// cleanup can try to remove it once the request finishes.
func (s *Session) NoteSourceParent(dir string) {
	s.sourceParents[dir] = struct{}{}
}

// SourceParents returns the deduplicated parents sorted deepest first.
func (s *Session) SourceParents() []string {
	out := make([]string, 0, len(s.sourceParents))
	for dir := range s.sourceParents {
		out = append(out, dir)
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := pathDepth(out[i]), pathDepth(out[j])
		if di != dj {
			return di > dj
		}
		return out[i] < out[j]
	})
	return out
}
