package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// copyBufferSize is the chunk size for streaming copies. Progress callbacks
// fire once per chunk.
const copyBufferSize = 256 * 1024

// CopyFile streams src to dst, invoking onProgress with the cumulative byte
// count after every chunk. The destination is fully flushed and closed before
// success is reported; on any failure the partial destination is removed so a
// truncated file can never be mistaken for a completed copy.
func (e *Engine) CopyFile(ctx context.Context, src, dst string, onProgress ProgressFn) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	total := info.Size()

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, e.perms.FileMode())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	copied, err := e.streamChunks(ctx, in, out, total, onProgress)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("close destination: %w", err)
	}

	if copied == 0 && total == 0 && onProgress != nil {
		onProgress(0, 0)
	}
	return nil
}

func (e *Engine) streamChunks(ctx context.Context, in io.Reader, out io.Writer, total int64, onProgress ProgressFn) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var copied int64
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, readErr := in.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return copied, fmt.Errorf("write destination: %w", writeErr)
			}
			copied += int64(n)
			if onProgress != nil {
				onProgress(copied, total)
			}
		}
		if readErr == io.EOF {
			return copied, nil
		}
		if readErr != nil {
			return copied, fmt.Errorf("read source: %w", readErr)
		}
	}
}

// CopyDirectory copies the whole tree under srcDir into dstDir. It enumerates
// every regular file up front to learn the total byte count, materializes
// dstDir (and each file's parent) beneath baseRoot, and drives CopyFile per
// file with a callback that folds file progress into the tree-wide total.
// Copied files are permission-normalized as they land. Trees with zero files
// still produce one (0,0) progress callback so callers observe at least one
// update. Files are processed strictly in enumeration order.
func (e *Engine) CopyDirectory(ctx context.Context, srcDir, dstDir, baseRoot string, sess *Session, onProgress ProgressFn) error {
	files, totalBytes, err := enumerateFiles(ctx, srcDir)
	if err != nil {
		return err
	}

	if err := e.EnsureDirectory(ctx, dstDir, baseRoot, sess); err != nil {
		return err
	}

	if len(files) == 0 {
		if onProgress != nil {
			onProgress(0, 0)
		}
		return nil
	}

	var treeCopied int64
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		target := filepath.Join(dstDir, file.RelativePath)
		if err := e.EnsureDirectory(ctx, filepath.Dir(target), baseRoot, sess); err != nil {
			return err
		}

		base := treeCopied
		err := e.CopyFile(ctx, file.AbsolutePath, target, func(fileCopied, _ int64) {
			if onProgress != nil {
				onProgress(base+fileCopied, totalBytes)
			}
		})
		if err != nil {
			return fmt.Errorf("copy %s: %w", file.RelativePath, err)
		}
		treeCopied += file.Size

		if err := e.perms.ApplyFileMode(target); err != nil {
			return err
		}
	}

	return nil
}
