package api

import (
	"fmt"
	"path"
	"strings"

	"restack/internal/transfer"
)

// FromTransferEvent maps an engine event variant onto its wire shape. The
// switch is exhaustive over the tagged union; an unknown variant is a
// programming error surfaced at the boundary instead of a silently
// mis-shaped frame.
func FromTransferEvent(evt transfer.Event) (TransferEvent, error) {
	switch e := evt.(type) {
	case transfer.ProgressEvent:
		return TransferEvent{
			Type:        EventProgress,
			Current:     e.Current,
			Total:       e.Total,
			CurrentFile: e.CurrentFile,
			Completed:   e.Completed,
			Failed:      e.Failed,
			Errors:      errorsOrEmpty(e.Errors),
		}, nil
	case transfer.FileProgressEvent:
		copied, total, rate := e.BytesCopied, e.BytesTotal, e.BytesPerSecond
		return TransferEvent{
			Type:           EventFileProgress,
			Current:        e.Current,
			Total:          e.Total,
			CurrentFile:    e.CurrentFile,
			Completed:      e.Completed,
			Failed:         e.Failed,
			Errors:         errorsOrEmpty(e.Errors),
			BytesCopied:    &copied,
			BytesTotal:     &total,
			BytesPerSecond: &rate,
		}, nil
	case transfer.CompleteEvent:
		return TransferEvent{
			Type:      EventComplete,
			Current:   e.Total,
			Total:     e.Total,
			Completed: e.Completed,
			Failed:    e.Failed,
			Errors:    errorsOrEmpty(e.Errors),
			Message:   e.Message,
		}, nil
	case transfer.ErrorEvent:
		return TransferEvent{
			Type:      EventError,
			Current:   e.Current,
			Total:     e.Total,
			Completed: e.Completed,
			Failed:    e.Failed,
			Errors:    errorsOrEmpty(e.Errors),
			Message:   e.Message,
		}, nil
	default:
		return TransferEvent{}, fmt.Errorf("unknown transfer event %T", evt)
	}
}

// ToTransferRequest validates the wire request and normalizes both accepted
// shapes into the engine's item list.
func (r TransferRequest) ToTransferRequest() (transfer.Request, error) {
	op := transfer.Operation(strings.ToLower(strings.TrimSpace(r.Operation)))
	if !op.Valid() {
		return transfer.Request{}, fmt.Errorf("invalid operation %q", r.Operation)
	}

	var items []transfer.Item
	switch {
	case len(r.Files) > 0 && len(r.SourcePaths) > 0:
		return transfer.Request{}, fmt.Errorf("request must use either files or sourcePaths, not both")
	case len(r.Files) > 0:
		items = make([]transfer.Item, 0, len(r.Files))
		for _, file := range r.Files {
			if strings.TrimSpace(file.SourcePath) == "" || strings.TrimSpace(file.DestinationPath) == "" {
				return transfer.Request{}, fmt.Errorf("file entries require sourcePath and destinationPath")
			}
			items = append(items, transfer.Item{
				SourcePath:      file.SourcePath,
				DestinationPath: file.DestinationPath,
				Overwrite:       file.Overwrite,
			})
		}
	case len(r.SourcePaths) > 0:
		items = make([]transfer.Item, 0, len(r.SourcePaths))
		for _, src := range r.SourcePaths {
			if strings.TrimSpace(src) == "" {
				return transfer.Request{}, fmt.Errorf("sourcePaths entries must not be empty")
			}
			items = append(items, transfer.Item{
				SourcePath:      src,
				DestinationPath: path.Join(r.DestinationFolder, path.Base(strings.ReplaceAll(src, "\\", "/"))),
			})
		}
	default:
		return transfer.Request{}, fmt.Errorf("request requires files or sourcePaths")
	}

	return transfer.Request{
		Operation: op,
		Overwrite: r.Overwrite,
		Items:     items,
	}, nil
}

func errorsOrEmpty(errs []string) []string {
	if errs == nil {
		return []string{}
	}
	return errs
}
