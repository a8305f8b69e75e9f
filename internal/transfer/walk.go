package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// enumerateFiles lists every regular file under root, returning the flat file
// list and the total byte size. The walk is iterative (explicit stack) so
// very deep trees cannot exhaust the call stack. Sizes are observed at
// enumeration time; the total is a best-effort snapshot, not a guard against
// concurrent mutation.
func enumerateFiles(ctx context.Context, root string) ([]FileInfo, int64, error) {
	var (
		files []FileInfo
		total int64
	)

	stack := []string{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, 0, fmt.Errorf("read directory %s: %w", dir, err)
		}

		// Push subdirectories in reverse so they pop in lexical order.
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].IsDir() {
				stack = append(stack, filepath.Join(dir, entries[i].Name()))
			}
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			abs := filepath.Join(dir, entry.Name())
			info, err := entry.Info()
			if err != nil {
				return nil, 0, fmt.Errorf("stat %s: %w", abs, err)
			}
			rel, err := filepath.Rel(root, abs)
			if err != nil {
				return nil, 0, fmt.Errorf("relativize %s: %w", abs, err)
			}
			files = append(files, FileInfo{
				RelativePath: rel,
				AbsolutePath: abs,
				Size:         info.Size(),
			})
			total += info.Size()
		}
	}

	return files, total, nil
}

func pathDepth(path string) int {
	depth := 0
	for _, r := range path {
		if r == filepath.Separator {
			depth++
		}
	}
	return depth
}
