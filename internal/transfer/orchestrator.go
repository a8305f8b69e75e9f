package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"restack/internal/logging"
	"restack/internal/paths"
	"restack/internal/permissions"
)

// Orchestrator drives a transfer request item by item: path validation,
// destination materialization, conflict policy, dispatch to the copy or move
// machinery, and event emission. Items are processed strictly in request
// order with no internal parallelism, which bounds open descriptors and keeps
// the progress stream monotonic.
type Orchestrator struct {
	srcRoot string
	dstRoot string
	engine  *Engine
	logger  *slog.Logger

	// clock is injectable for throttle tests.
	clock func() time.Time
}

// NewOrchestrator wires the orchestrator to the pane roots: sources resolve
// against downloads, destinations against media.
func NewOrchestrator(roots paths.Roots, perms *permissions.Normalizer, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		srcRoot: roots.Downloads(),
		dstRoot: roots.Media(),
		engine:  NewEngine(perms, logger),
		logger:  logging.NewComponentLogger(logger, "orchestrator"),
		clock:   time.Now,
	}
}

// Engine exposes the underlying filesystem engine, mainly for collaborators
// that materialize directories outside a batch request (folder creation).
func (o *Orchestrator) Engine() *Engine { return o.engine }

// Run processes the request sequentially and emits the progress protocol.
// Per-item failures are recorded and processing continues; fatal failures
// emit a single error event and stop, leaving remaining items unprocessed.
// The returned session carries the final counters either way.
func (o *Orchestrator) Run(ctx context.Context, req Request, emit EmitFn) (*Session, error) {
	sess := NewSession()

	if !req.Operation.Valid() {
		return sess, fmt.Errorf("%w: %q", ErrInvalidOperation, req.Operation)
	}
	if len(req.Items) == 0 {
		return sess, ErrEmptyRequest
	}

	total := len(req.Items)
	for index, item := range req.Items {
		current := index + 1
		name := filepath.Base(item.SourcePath)

		// Counters reported here reflect the state before this item.
		if err := emit(ProgressEvent{
			Current:     current,
			Total:       total,
			CurrentFile: name,
			Completed:   sess.Completed,
			Failed:      sess.Failed,
			Errors:      sess.Errors,
		}); err != nil {
			return sess, o.fatal(ctx, sess, current, total, emit, fmt.Errorf("emit progress: %w", err))
		}

		err := o.processItem(ctx, req, item, sess, current, total, emit)
		if err == nil {
			sess.Completed++
			continue
		}
		if ctx.Err() != nil || IsFatal(err) {
			return sess, o.fatal(ctx, sess, current, total, emit, err)
		}
		o.logger.Warn("item failed",
			logging.String("source", item.SourcePath),
			logging.String("destination", item.DestinationPath),
			logging.Error(err),
		)
		if !errorRecorded(err) {
			sess.RecordError(fmt.Sprintf("Failed: %s", name))
		}
	}

	if req.Operation == OperationMove && sess.Completed > 0 {
		o.cleanupSources(ctx, sess)
	}

	message := fmt.Sprintf("Transfer complete: %d succeeded, %d failed", sess.Completed, sess.Failed)
	if err := emit(CompleteEvent{
		Total:     total,
		Completed: sess.Completed,
		Failed:    sess.Failed,
		Errors:    sess.Errors,
		Message:   message,
	}); err != nil {
		return sess, fmt.Errorf("emit complete: %w", err)
	}
	return sess, nil
}

// recordedError marks failures whose message was already appended to the
// session error list, so the generic "Failed:" entry is skipped.
type recordedError struct {
	err error
}

func (e *recordedError) Error() string { return e.err.Error() }

func (e *recordedError) Unwrap() error { return e.err }

func recorded(err error) error { return &recordedError{err: err} }

func errorRecorded(err error) bool {
	var re *recordedError
	return errors.As(err, &re)
}

func (o *Orchestrator) processItem(ctx context.Context, req Request, item Item, sess *Session, current, total int, emit EmitFn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	srcAbs, err := paths.Resolve(o.srcRoot, item.SourcePath)
	if err != nil {
		sess.RecordError(fmt.Sprintf("Invalid source path: %s", item.SourcePath))
		return recorded(err)
	}

	var dstAbs string
	sanitized, err := paths.Sanitize(item.DestinationPath)
	if err == nil {
		dstAbs, err = paths.Resolve(o.dstRoot, sanitized)
	}
	if err != nil {
		sess.RecordError(fmt.Sprintf("Invalid destination path: %s", item.DestinationPath))
		return recorded(err)
	}

	// The source validated; its parent is a cleanup candidate regardless of
	// how the item turns out.
	sess.NoteSourceParent(filepath.Dir(srcAbs))

	srcInfo, err := os.Lstat(srcAbs)
	if err != nil {
		sess.RecordError(fmt.Sprintf("Source not found: %s", filepath.Base(item.SourcePath)))
		return recorded(err)
	}
	isDir := srcInfo.IsDir()

	if err := o.engine.EnsureDirectory(ctx, filepath.Dir(dstAbs), o.dstRoot, sess); err != nil {
		return err
	}

	overwrite := req.EffectiveOverwrite(item)
	if _, err := os.Lstat(dstAbs); err == nil {
		if !overwrite {
			sess.RecordError(fmt.Sprintf("Already exists: %s", filepath.Base(dstAbs)))
			return recorded(os.ErrExist)
		}
		// Replacement, not merge: the destination must end up holding
		// exactly the source's content, so the old entry goes first.
		if err := os.RemoveAll(dstAbs); err != nil {
			return fmt.Errorf("remove existing destination: %w", err)
		}
	}

	gauge := newProgressGauge(o.clock)
	var emitErr error
	var itemBytes int64
	onProgress := func(bytesCopied, bytesTotal int64) {
		if bytesCopied > itemBytes {
			sess.BytesCopied += bytesCopied - itemBytes
			itemBytes = bytesCopied
		}
		rate, forward := gauge.observe(bytesCopied, bytesTotal)
		if !forward || emitErr != nil {
			return
		}
		emitErr = emit(FileProgressEvent{
			Current:        current,
			Total:          total,
			CurrentFile:    filepath.Base(item.SourcePath),
			Completed:      sess.Completed,
			Failed:         sess.Failed,
			Errors:         sess.Errors,
			BytesCopied:    bytesCopied,
			BytesTotal:     bytesTotal,
			BytesPerSecond: rate,
		})
	}

	switch req.Operation {
	case OperationMove:
		err = o.engine.Move(ctx, srcAbs, dstAbs, isDir, o.dstRoot, sess, onProgress)
	case OperationCopy:
		if isDir {
			err = o.engine.CopyDirectory(ctx, srcAbs, dstAbs, o.dstRoot, sess, onProgress)
		} else {
			if err = o.engine.CopyFile(ctx, srcAbs, dstAbs, onProgress); err == nil {
				err = o.engine.perms.ApplyFileMode(dstAbs)
			}
		}
	}
	if err != nil {
		return err
	}
	if emitErr != nil {
		return Fatal(fmt.Errorf("emit file progress: %w", emitErr))
	}
	return nil
}

func (o *Orchestrator) fatal(ctx context.Context, sess *Session, current, total int, emit EmitFn, cause error) error {
	o.logger.Error("transfer aborted", logging.Error(cause))
	if ctx.Err() == nil {
		_ = emit(ErrorEvent{
			Current:   current,
			Total:     total,
			Completed: sess.Completed,
			Failed:    sess.Failed,
			Errors:    sess.Errors,
			Message:   cause.Error(),
		})
	}
	return cause
}
