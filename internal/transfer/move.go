package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"restack/internal/logging"
)

// Move relocates src to dst, preferring an in-place rename. The caller has
// already applied the conflict policy, so dst is expected to be absent. Any
// rename failure falls back to copy-then-delete; the source is only removed
// after the copy fully succeeds, so an interrupted fallback always leaves the
// original intact. The rename failure reason is logged distinctly
// (cross-device moves are named) even though the fallback behavior is
// identical for every cause.
func (e *Engine) Move(ctx context.Context, src, dst string, isDir bool, baseRoot string, sess *Session, onProgress ProgressFn) error {
	renameErr := e.rename(src, dst)
	if renameErr == nil {
		if err := e.normalizeMoved(dst, isDir); err != nil {
			return err
		}
		// Nothing was streamed, so report an instant 100% completion.
		if onProgress != nil {
			var size int64
			if !isDir {
				if info, err := os.Stat(dst); err == nil {
					size = info.Size()
				}
			}
			onProgress(size, size)
		}
		return nil
	}

	e.logger.Warn("rename failed, falling back to copy",
		logging.String("source", src),
		logging.String("destination", dst),
		logging.String("reason", classifyRenameError(renameErr)),
		logging.Error(renameErr),
	)

	if isDir {
		if err := e.CopyDirectory(ctx, src, dst, baseRoot, sess, onProgress); err != nil {
			return err
		}
		if err := os.RemoveAll(src); err != nil {
			return fmt.Errorf("remove source after copy: %w", err)
		}
		return nil
	}

	if err := e.CopyFile(ctx, src, dst, onProgress); err != nil {
		return err
	}
	if err := e.perms.ApplyFileMode(dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

func (e *Engine) normalizeMoved(dst string, isDir bool) error {
	if isDir {
		return e.perms.ApplyDirMode(dst)
	}
	return e.perms.ApplyFileMode(dst)
}

// classifyRenameError names the failure class so operators can tell a routine
// cross-device move from a genuine permission problem without the fallback
// changing observable outcomes.
func classifyRenameError(err error) string {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		switch {
		case errors.Is(linkErr.Err, syscall.EXDEV):
			return "cross-device"
		case errors.Is(linkErr.Err, os.ErrPermission):
			return "permission"
		}
	}
	if errors.Is(err, os.ErrPermission) {
		return "permission"
	}
	if errors.Is(err, os.ErrNotExist) {
		return "missing"
	}
	return "other"
}
