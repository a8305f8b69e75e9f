package transfer

// Operation selects between copying and moving the request's items.
type Operation string

const (
	OperationCopy Operation = "copy"
	OperationMove Operation = "move"
)

// Valid reports whether the operation is one of copy/move.
func (op Operation) Valid() bool {
	return op == OperationCopy || op == OperationMove
}

// Item is a single source/destination pair. Paths are relative to their
// respective pane roots. Items are immutable once created; the orchestrator
// derives a per-item outcome without mutating them.
type Item struct {
	SourcePath      string
	DestinationPath string
	// Overwrite overrides the request-level default when non-nil.
	Overwrite *bool
}

// Request is an ordered batch of items plus the operation to apply.
type Request struct {
	Operation Operation
	Overwrite bool
	Items     []Item
}

// EffectiveOverwrite resolves the per-item override against the request
// default.
func (r Request) EffectiveOverwrite(item Item) bool {
	if item.Overwrite != nil {
		return *item.Overwrite
	}
	return r.Overwrite
}

// FileInfo describes one regular file observed during directory enumeration.
type FileInfo struct {
	RelativePath string
	AbsolutePath string
	Size         int64
}

// ProgressFn receives cumulative byte progress for the current item.
type ProgressFn func(bytesCopied, bytesTotal int64)

// Event is the tagged union of progress notifications produced while a
// request runs. Exactly one variant exists per wire event kind; the
// serialization boundary switches exhaustively over these types.
type Event interface {
	isEvent()
}

// ProgressEvent announces the item about to start, with the counters as they
// stood before that item.
type ProgressEvent struct {
	Current     int
	Total       int
	CurrentFile string
	Completed   int
	Failed      int
	Errors      []string
}

// FileProgressEvent is a byte-level update within the current item.
type FileProgressEvent struct {
	Current        int
	Total          int
	CurrentFile    string
	Completed      int
	Failed         int
	Errors         []string
	BytesCopied    int64
	BytesTotal     int64
	BytesPerSecond float64
}

// CompleteEvent is the terminal summary of a finished request.
type CompleteEvent struct {
	Total     int
	Completed int
	Failed    int
	Errors    []string
	Message   string
}

// ErrorEvent reports a fatal failure; the stream ends immediately after.
type ErrorEvent struct {
	Current   int
	Total     int
	Completed int
	Failed    int
	Errors    []string
	Message   string
}

func (ProgressEvent) isEvent()     {}
func (FileProgressEvent) isEvent() {}
func (CompleteEvent) isEvent()     {}
func (ErrorEvent) isEvent()        {}

// EmitFn forwards one event to the caller's stream. A non-nil error aborts
// the request as fatal.
type EmitFn func(Event) error
