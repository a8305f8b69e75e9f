package transfer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"restack/internal/testsupport"
)

func TestCopyFileContentAndProgress(t *testing.T) {
	engine, downloads, media := newTestEngine(t)

	content := bytes.Repeat([]byte("media"), 200_000) // ~1MB, several chunks
	src := filepath.Join(downloads, "a.mkv")
	dst := filepath.Join(media, "a.mkv")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	var updates [][2]int64
	err := engine.CopyFile(context.Background(), src, dst, func(copied, total int64) {
		updates = append(updates, [2]int64{copied, total})
	})
	if err != nil {
		t.Fatalf("copy: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Fatal("content mismatch")
	}

	if len(updates) < 2 {
		t.Fatalf("expected chunked updates, got %d", len(updates))
	}
	var prev int64 = -1
	for _, u := range updates {
		if u[0] < prev {
			t.Fatalf("bytesCopied decreased: %d after %d", u[0], prev)
		}
		if u[0] > u[1] {
			t.Fatalf("bytesCopied %d exceeds total %d", u[0], u[1])
		}
		prev = u[0]
	}
	last := updates[len(updates)-1]
	if last[0] != last[1] || last[0] != int64(len(content)) {
		t.Fatalf("final update %v, want complete at %d", last, len(content))
	}
}

func TestCopyFileZeroBytesEmitsOneUpdate(t *testing.T) {
	engine, downloads, media := newTestEngine(t)
	src := filepath.Join(downloads, "empty.nfo")
	if err := os.WriteFile(src, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var updates [][2]int64
	err := engine.CopyFile(context.Background(), src, filepath.Join(media, "empty.nfo"), func(copied, total int64) {
		updates = append(updates, [2]int64{copied, total})
	})
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if !reflect.DeepEqual(updates, [][2]int64{{0, 0}}) {
		t.Fatalf("updates = %v, want single (0,0)", updates)
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	engine, downloads, media := newTestEngine(t)
	err := engine.CopyFile(context.Background(), filepath.Join(downloads, "gone.mkv"), filepath.Join(media, "gone.mkv"), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, statErr := os.Stat(filepath.Join(media, "gone.mkv")); !os.IsNotExist(statErr) {
		t.Fatal("destination must not exist after failed copy")
	}
}

func TestCopyFileCancelledRemovesPartial(t *testing.T) {
	engine, downloads, media := newTestEngine(t)
	src := filepath.Join(downloads, "big.mkv")
	if err := os.WriteFile(src, bytes.Repeat([]byte("x"), 3*copyBufferSize), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	dst := filepath.Join(media, "big.mkv")
	err := engine.CopyFile(ctx, src, dst, func(copied, total int64) {
		if copied >= copyBufferSize {
			cancel()
		}
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Fatal("partial destination must be removed")
	}
}

func TestCopyDirectoryRoundTrip(t *testing.T) {
	engine, downloads, media := newTestEngine(t)
	srcDir := filepath.Join(downloads, "Show")
	tree := map[string]string{
		"Season 01/e01.mkv": strings.Repeat("a", 1000),
		"Season 01/e02.mkv": strings.Repeat("b", 500),
		"Season 02/e01.mkv": "c",
		"poster.jpg":        "img",
	}
	testsupport.MakeTree(t, srcDir, tree)

	dstDir := filepath.Join(media, "Show (2020)")
	sess := NewSession()
	var finalCopied, finalTotal int64
	err := engine.CopyDirectory(context.Background(), srcDir, dstDir, media, sess, func(copied, total int64) {
		if copied < finalCopied {
			t.Fatalf("tree progress decreased: %d after %d", copied, finalCopied)
		}
		finalCopied, finalTotal = copied, total
	})
	if err != nil {
		t.Fatalf("copy directory: %v", err)
	}

	if got, want := testsupport.ListTree(t, dstDir), testsupport.ListTree(t, srcDir); !reflect.DeepEqual(got, want) {
		t.Fatalf("tree mismatch: got %v, want %v", got, want)
	}
	for rel, content := range tree {
		if got := testsupport.ReadFile(t, filepath.Join(dstDir, filepath.FromSlash(rel))); got != content {
			t.Fatalf("content mismatch for %s", rel)
		}
	}

	wantTotal := int64(1000 + 500 + 1 + 3)
	if finalTotal != wantTotal || finalCopied != wantTotal {
		t.Fatalf("final progress %d/%d, want %d/%d", finalCopied, finalTotal, wantTotal, wantTotal)
	}

	// Copied files carry the normalized file mode.
	info, err := os.Stat(filepath.Join(dstDir, "Season 01", "e01.mkv"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o664 {
		t.Fatalf("file mode = %o, want 0664", info.Mode().Perm())
	}
}

func TestCopyDirectoryEmptyTreeEmitsZeroUpdate(t *testing.T) {
	engine, downloads, media := newTestEngine(t)
	srcDir := filepath.Join(downloads, "empty")
	if err := os.MkdirAll(filepath.Join(srcDir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	var updates [][2]int64
	err := engine.CopyDirectory(context.Background(), srcDir, filepath.Join(media, "empty"), media, NewSession(), func(copied, total int64) {
		updates = append(updates, [2]int64{copied, total})
	})
	if err != nil {
		t.Fatalf("copy directory: %v", err)
	}
	if !reflect.DeepEqual(updates, [][2]int64{{0, 0}}) {
		t.Fatalf("updates = %v, want single (0,0)", updates)
	}
	if _, err := os.Stat(filepath.Join(media, "empty")); err != nil {
		t.Fatalf("destination directory should exist: %v", err)
	}
}
