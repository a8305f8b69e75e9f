package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// errNotDirectory marks a path segment occupied by a non-directory.
var errNotDirectory = errors.New("not a directory")

// EnsureDirectory creates targetDir beneath baseRoot one segment at a time,
// applying permission normalization to every created or already-existing
// level. Bulk "create with parents" primitives do not reliably apply mode
// bits to intermediate directories, hence the per-segment walk. Results are
// cached in the session so repeated destinations cost one materialization per
// request.
func (e *Engine) EnsureDirectory(ctx context.Context, targetDir, baseRoot string, sess *Session) error {
	if sess.DirCreated(targetDir) {
		return nil
	}

	rel, err := filepath.Rel(baseRoot, targetDir)
	if err != nil || rel == "." || rel == string(filepath.Separator) || strings.HasPrefix(rel, "..") {
		// At or outside the base root: create as a single leaf.
		if err := e.makeDir(targetDir); err != nil {
			return err
		}
		sess.MarkDirCreated(targetDir)
		return nil
	}

	current := baseRoot
	for _, segment := range strings.Split(rel, string(filepath.Separator)) {
		if segment == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		current = filepath.Join(current, segment)
		if err := e.makeDir(current); err != nil {
			return err
		}
	}

	sess.MarkDirCreated(targetDir)
	return nil
}

// makeDir creates a single directory level, tolerating "already exists", and
// normalizes its permissions either way so attributes stay consistent across
// runs.
func (e *Engine) makeDir(dir string) error {
	if err := os.Mkdir(dir, e.perms.DirMode()); err != nil {
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
		// Tolerate an existing directory only; a file squatting on the
		// segment must surface here, not as a downstream write error.
		info, statErr := os.Stat(dir)
		if statErr != nil {
			return fmt.Errorf("stat directory %s: %w", dir, statErr)
		}
		if !info.IsDir() {
			return fmt.Errorf("create directory %s: %w", dir, errNotDirectory)
		}
	}
	if err := e.perms.ApplyDirMode(dir); err != nil {
		return fmt.Errorf("normalize directory %s: %w", dir, err)
	}
	return nil
}
