package transfer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"restack/internal/config"
	"restack/internal/paths"
	"restack/internal/permissions"
	"restack/internal/testsupport"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	roots, err := paths.NewRoots(cfg)
	if err != nil {
		t.Fatalf("roots: %v", err)
	}
	perms, err := permissions.New(cfg, nil)
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}
	return NewOrchestrator(roots, perms, nil), cfg
}

func collectEvents(events *[]Event) EmitFn {
	return func(evt Event) error {
		*events = append(*events, evt)
		return nil
	}
}

func TestRunMoveSingleFile(t *testing.T) {
	o, cfg := newTestOrchestrator(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "a.mkv"), "episode one")

	req := Request{
		Operation: OperationMove,
		Items: []Item{{
			SourcePath:      "a.mkv",
			DestinationPath: "Show (2020)/Season 01/Show S01E01.mkv",
		}},
	}

	var events []Event
	sess, err := o.Run(context.Background(), req, collectEvents(&events))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sess.Completed != 1 || sess.Failed != 0 {
		t.Fatalf("counters: %d/%d", sess.Completed, sess.Failed)
	}

	// Leading progress event, at least one file_progress, terminal complete.
	first, ok := events[0].(ProgressEvent)
	if !ok {
		t.Fatalf("first event %T", events[0])
	}
	if first.Current != 1 || first.Total != 1 || first.CurrentFile != "a.mkv" {
		t.Fatalf("progress event %+v", first)
	}
	if first.Completed != 0 || first.Failed != 0 {
		t.Fatal("leading counters must reflect pre-item state")
	}

	last, ok := events[len(events)-1].(CompleteEvent)
	if !ok {
		t.Fatalf("last event %T", events[len(events)-1])
	}
	if last.Completed != 1 || last.Failed != 0 || len(last.Errors) != 0 {
		t.Fatalf("complete event %+v", last)
	}

	var sawFileProgress bool
	for _, evt := range events {
		if fp, ok := evt.(FileProgressEvent); ok {
			sawFileProgress = true
			if fp.BytesCopied != fp.BytesTotal {
				t.Fatalf("last file progress incomplete: %+v", fp)
			}
		}
	}
	if !sawFileProgress {
		t.Fatal("expected a file_progress event")
	}

	dst := filepath.Join(cfg.Paths.MediaDir, "Show (2020)", "Season 01", "Show S01E01.mkv")
	if got := testsupport.ReadFile(t, dst); got != "episode one" {
		t.Fatalf("destination content %q", got)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Paths.DownloadsDir, "a.mkv")); !os.IsNotExist(statErr) {
		t.Fatal("source must be gone")
	}
}

func TestRunConflictWithoutOverwrite(t *testing.T) {
	o, cfg := newTestOrchestrator(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "a.mkv"), "new")
	dst := filepath.Join(cfg.Paths.MediaDir, "Show (2020)", "Season 01", "Show S01E01.mkv")
	testsupport.WriteFile(t, dst, "original")

	req := Request{
		Operation: OperationMove,
		Items: []Item{{
			SourcePath:      "a.mkv",
			DestinationPath: "Show (2020)/Season 01/Show S01E01.mkv",
		}},
	}

	var events []Event
	sess, err := o.Run(context.Background(), req, collectEvents(&events))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sess.Completed != 0 || sess.Failed != 1 {
		t.Fatalf("counters: %d/%d", sess.Completed, sess.Failed)
	}
	if !reflect.DeepEqual(sess.Errors, []string{"Already exists: Show S01E01.mkv"}) {
		t.Fatalf("errors = %v", sess.Errors)
	}
	// Destination untouched.
	if got := testsupport.ReadFile(t, dst); got != "original" {
		t.Fatalf("destination content %q", got)
	}
	// Source untouched on conflict.
	if got := testsupport.ReadFile(t, filepath.Join(cfg.Paths.DownloadsDir, "a.mkv")); got != "new" {
		t.Fatalf("source content %q", got)
	}
}

func TestRunOverwriteReplacesDestination(t *testing.T) {
	o, cfg := newTestOrchestrator(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "a.mkv"), "short")
	dst := filepath.Join(cfg.Paths.MediaDir, "a.mkv")
	testsupport.WriteFile(t, dst, "a much longer original payload")

	req := Request{
		Operation: OperationCopy,
		Overwrite: true,
		Items:     []Item{{SourcePath: "a.mkv", DestinationPath: "a.mkv"}},
	}

	var events []Event
	sess, err := o.Run(context.Background(), req, collectEvents(&events))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sess.Completed != 1 {
		t.Fatalf("completed = %d", sess.Completed)
	}
	if got := testsupport.ReadFile(t, dst); got != "short" {
		t.Fatalf("destination content %q", got)
	}
}

func TestRunCopyOverwriteReplacesDirectoryTree(t *testing.T) {
	o, cfg := newTestOrchestrator(t)
	testsupport.MakeTree(t, filepath.Join(cfg.Paths.DownloadsDir, "Show"), map[string]string{
		"Season 01/s01e01.mkv": "fresh episode",
	})
	dstDir := filepath.Join(cfg.Paths.MediaDir, "Show")
	testsupport.MakeTree(t, dstDir, map[string]string{
		"Season 01/s01e01.mkv": "old episode",
		"stale.mkv":            "left over from a previous import",
	})

	req := Request{
		Operation: OperationCopy,
		Overwrite: true,
		Items:     []Item{{SourcePath: "Show", DestinationPath: "Show"}},
	}

	var events []Event
	sess, err := o.Run(context.Background(), req, collectEvents(&events))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sess.Completed != 1 || sess.Failed != 0 {
		t.Fatalf("counters: %d/%d", sess.Completed, sess.Failed)
	}

	// Replacement, not merge: only the source's files may remain.
	if got := testsupport.ListTree(t, dstDir); !reflect.DeepEqual(got, []string{"Season 01/s01e01.mkv"}) {
		t.Fatalf("destination tree = %v", got)
	}
	if got := testsupport.ReadFile(t, filepath.Join(dstDir, "Season 01", "s01e01.mkv")); got != "fresh episode" {
		t.Fatalf("destination content %q", got)
	}
}

func TestRunCopyOverwriteReplacesDirectoryWithFile(t *testing.T) {
	o, cfg := newTestOrchestrator(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "a.mkv"), "single file")
	dst := filepath.Join(cfg.Paths.MediaDir, "a.mkv")
	testsupport.WriteFile(t, filepath.Join(dst, "nested.mkv"), "directory in the way")

	req := Request{
		Operation: OperationCopy,
		Overwrite: true,
		Items:     []Item{{SourcePath: "a.mkv", DestinationPath: "a.mkv"}},
	}

	var events []Event
	sess, err := o.Run(context.Background(), req, collectEvents(&events))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sess.Completed != 1 || sess.Failed != 0 {
		t.Fatalf("counters: %d/%d", sess.Completed, sess.Failed)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("destination missing: %v", err)
	}
	if info.IsDir() {
		t.Fatal("destination is still a directory")
	}
	if got := testsupport.ReadFile(t, dst); got != "single file" {
		t.Fatalf("destination content %q", got)
	}
}

func TestRunPerItemOverwriteOverride(t *testing.T) {
	o, cfg := newTestOrchestrator(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "a.mkv"), "a")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "b.mkv"), "b")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.MediaDir, "a.mkv"), "old-a")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.MediaDir, "b.mkv"), "old-b")

	force := true
	req := Request{
		Operation: OperationCopy,
		Overwrite: false,
		Items: []Item{
			{SourcePath: "a.mkv", DestinationPath: "a.mkv"},
			{SourcePath: "b.mkv", DestinationPath: "b.mkv", Overwrite: &force},
		},
	}

	var events []Event
	sess, err := o.Run(context.Background(), req, collectEvents(&events))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sess.Completed != 1 || sess.Failed != 1 {
		t.Fatalf("counters: %d/%d", sess.Completed, sess.Failed)
	}
	if got := testsupport.ReadFile(t, filepath.Join(cfg.Paths.MediaDir, "a.mkv")); got != "old-a" {
		t.Fatal("item without override must not overwrite")
	}
	if got := testsupport.ReadFile(t, filepath.Join(cfg.Paths.MediaDir, "b.mkv")); got != "b" {
		t.Fatal("item with override must overwrite")
	}
}

func TestRunValidationSafety(t *testing.T) {
	o, cfg := newTestOrchestrator(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "ok.mkv"), "ok")

	req := Request{
		Operation: OperationCopy,
		Items: []Item{
			{SourcePath: "../outside.mkv", DestinationPath: "x.mkv"},
			{SourcePath: "ok.mkv", DestinationPath: "../../escape.mkv"},
			{SourcePath: "ok.mkv", DestinationPath: "ok.mkv"},
		},
	}

	var events []Event
	sess, err := o.Run(context.Background(), req, collectEvents(&events))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sess.Completed != 2 || sess.Failed != 1 {
		t.Fatalf("counters: %d/%d errors=%v", sess.Completed, sess.Failed, sess.Errors)
	}
	if !strings.Contains(sess.Errors[0], "Invalid source path") {
		t.Fatalf("errors = %v", sess.Errors)
	}
	// No stray files outside the media root.
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(cfg.Paths.MediaDir), "escape.mkv")); !os.IsNotExist(statErr) {
		t.Fatal("validation must prevent writes outside the root")
	}
}

func TestRunDestinationSanitization(t *testing.T) {
	// ".." segments in the destination are stripped, not applied: the second
	// item lands inside the media root.
	o, cfg := newTestOrchestrator(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "ok.mkv"), "ok")

	req := Request{
		Operation: OperationCopy,
		Items:     []Item{{SourcePath: "ok.mkv", DestinationPath: "./Show/../S01/ep.mkv"}},
	}

	var events []Event
	sess, err := o.Run(context.Background(), req, collectEvents(&events))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sess.Completed != 1 {
		t.Fatalf("counters: %d/%d errors=%v", sess.Completed, sess.Failed, sess.Errors)
	}
	want := filepath.Join(cfg.Paths.MediaDir, "Show", "S01", "ep.mkv")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("sanitized destination missing: %v", err)
	}
}

func TestRunMissingSource(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	req := Request{
		Operation: OperationCopy,
		Items:     []Item{{SourcePath: "ghost.mkv", DestinationPath: "ghost.mkv"}},
	}

	var events []Event
	sess, err := o.Run(context.Background(), req, collectEvents(&events))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sess.Failed != 1 || !strings.Contains(sess.Errors[0], "Source not found") {
		t.Fatalf("errors = %v", sess.Errors)
	}
}

func TestRunSharedDestinationDirectoryMaterializedOnce(t *testing.T) {
	o, cfg := newTestOrchestrator(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "e01.mkv"), "one")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "e02.mkv"), "two")

	req := Request{
		Operation: OperationCopy,
		Items: []Item{
			{SourcePath: "e01.mkv", DestinationPath: "Show/Season 01/e01.mkv"},
			{SourcePath: "e02.mkv", DestinationPath: "Show/Season 01/e02.mkv"},
		},
	}

	var events []Event
	sess, err := o.Run(context.Background(), req, collectEvents(&events))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sess.Completed != 2 {
		t.Fatalf("completed = %d errors=%v", sess.Completed, sess.Errors)
	}

	seasonDir := filepath.Join(cfg.Paths.MediaDir, "Show", "Season 01")
	if !sess.DirCreated(seasonDir) {
		t.Fatal("shared directory should be session-cached")
	}
	for _, dir := range []string{filepath.Join(cfg.Paths.MediaDir, "Show"), seasonDir} {
		info, statErr := os.Stat(dir)
		if statErr != nil {
			t.Fatal(statErr)
		}
		if info.Mode().Perm() != 0o775 {
			t.Fatalf("%s mode = %o", dir, info.Mode().Perm())
		}
	}
}

func TestRunMoveCleansEmptySourceDirs(t *testing.T) {
	o, cfg := newTestOrchestrator(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "done", "a.mkv"), "a")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "busy", "b.mkv"), "b")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "busy", "keep.nfo"), "keep")

	req := Request{
		Operation: OperationMove,
		Items: []Item{
			{SourcePath: "done/a.mkv", DestinationPath: "a.mkv"},
			{SourcePath: "busy/b.mkv", DestinationPath: "b.mkv"},
		},
	}

	var events []Event
	sess, err := o.Run(context.Background(), req, collectEvents(&events))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sess.Completed != 2 {
		t.Fatalf("completed = %d errors=%v", sess.Completed, sess.Errors)
	}

	// Emptied source directory removed, occupied one kept, root untouched.
	if _, statErr := os.Stat(filepath.Join(cfg.Paths.DownloadsDir, "done")); !os.IsNotExist(statErr) {
		t.Fatal("emptied source directory should be removed")
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Paths.DownloadsDir, "busy")); statErr != nil {
		t.Fatal("occupied source directory must remain")
	}
	if _, statErr := os.Stat(cfg.Paths.DownloadsDir); statErr != nil {
		t.Fatal("downloads root must remain")
	}
}

func TestRunCopyDoesNotCleanSources(t *testing.T) {
	o, cfg := newTestOrchestrator(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "dir", "a.mkv"), "a")

	req := Request{
		Operation: OperationCopy,
		Items:     []Item{{SourcePath: "dir/a.mkv", DestinationPath: "a.mkv"}},
	}
	var events []Event
	if _, err := o.Run(context.Background(), req, collectEvents(&events)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.DownloadsDir, "dir", "a.mkv")); err != nil {
		t.Fatal("copy must leave the source in place")
	}
}

func TestRunContinuesAfterItemFailure(t *testing.T) {
	o, cfg := newTestOrchestrator(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "good.mkv"), "good")

	req := Request{
		Operation: OperationCopy,
		Items: []Item{
			{SourcePath: "missing.mkv", DestinationPath: "missing.mkv"},
			{SourcePath: "good.mkv", DestinationPath: "good.mkv"},
		},
	}
	var events []Event
	sess, err := o.Run(context.Background(), req, collectEvents(&events))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sess.Completed != 1 || sess.Failed != 1 {
		t.Fatalf("counters: %d/%d", sess.Completed, sess.Failed)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Paths.MediaDir, "good.mkv")); statErr != nil {
		t.Fatal("later item should still transfer")
	}
}

func TestRunRejectsEmptyRequest(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	if _, err := o.Run(context.Background(), Request{Operation: OperationCopy}, func(Event) error { return nil }); !errors.Is(err, ErrEmptyRequest) {
		t.Fatalf("expected ErrEmptyRequest, got %v", err)
	}
}

func TestRunRejectsInvalidOperation(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	req := Request{Operation: "shuffle", Items: []Item{{SourcePath: "a", DestinationPath: "b"}}}
	if _, err := o.Run(context.Background(), req, func(Event) error { return nil }); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
}

func TestRunEmitFailureIsFatal(t *testing.T) {
	o, cfg := newTestOrchestrator(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "a.mkv"), "a")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "b.mkv"), "b")

	req := Request{
		Operation: OperationCopy,
		Items: []Item{
			{SourcePath: "a.mkv", DestinationPath: "a.mkv"},
			{SourcePath: "b.mkv", DestinationPath: "b.mkv"},
		},
	}

	emitted := 0
	_, err := o.Run(context.Background(), req, func(Event) error {
		emitted++
		return errors.New("client gone")
	})
	if err == nil {
		t.Fatal("expected fatal error")
	}
	// One failed progress emission plus the attempted error event.
	if emitted != 2 {
		t.Fatalf("emitted = %d, want processing to stop after first failure", emitted)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Paths.MediaDir, "b.mkv")); !os.IsNotExist(statErr) {
		t.Fatal("remaining items must not be processed after fatal error")
	}
}

func TestRunProgressMonotonicPerItem(t *testing.T) {
	o, cfg := newTestOrchestrator(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "big.mkv"), strings.Repeat("x", 2*copyBufferSize+100))

	req := Request{
		Operation: OperationCopy,
		Items:     []Item{{SourcePath: "big.mkv", DestinationPath: "big.mkv"}},
	}
	var events []Event
	if _, err := o.Run(context.Background(), req, collectEvents(&events)); err != nil {
		t.Fatalf("run: %v", err)
	}

	var prev int64 = -1
	var last *FileProgressEvent
	for _, evt := range events {
		fp, ok := evt.(FileProgressEvent)
		if !ok {
			continue
		}
		if fp.BytesCopied < prev {
			t.Fatalf("bytesCopied decreased: %d after %d", fp.BytesCopied, prev)
		}
		if fp.BytesCopied > fp.BytesTotal {
			t.Fatalf("bytesCopied exceeds total: %+v", fp)
		}
		prev = fp.BytesCopied
		last = &fp
	}
	if last == nil || last.BytesCopied != last.BytesTotal {
		t.Fatalf("final file_progress must be complete, got %+v", last)
	}
}

func TestSessionBytesAccumulateAcrossItems(t *testing.T) {
	o, cfg := newTestOrchestrator(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "a.mkv"), "12345")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadsDir, "b.mkv"), "123")

	req := Request{
		Operation: OperationCopy,
		Items: []Item{
			{SourcePath: "a.mkv", DestinationPath: "a.mkv"},
			{SourcePath: "b.mkv", DestinationPath: "b.mkv"},
		},
	}
	var events []Event
	sess, err := o.Run(context.Background(), req, collectEvents(&events))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sess.BytesCopied != 8 {
		t.Fatalf("bytes copied = %d, want 8", sess.BytesCopied)
	}
}
