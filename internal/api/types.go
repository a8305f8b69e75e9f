package api

// TransferItem is one source/destination pair in a transfer request.
type TransferItem struct {
	SourcePath      string `json:"sourcePath"`
	DestinationPath string `json:"destinationPath"`
	Overwrite       *bool  `json:"overwrite,omitempty"`
}

// TransferRequest is the POST /api/transfers body. Exactly one of Files or
// SourcePaths must be supplied; the SourcePaths shape is expanded by
// appending each source's basename to DestinationFolder.
type TransferRequest struct {
	Files             []TransferItem `json:"files,omitempty"`
	SourcePaths       []string       `json:"sourcePaths,omitempty"`
	DestinationFolder string         `json:"destinationFolder,omitempty"`
	Operation         string         `json:"operation"`
	Overwrite         bool           `json:"overwrite,omitempty"`
}

// TransferEvent is the wire shape shared by every stream frame, discriminated
// by Type.
type TransferEvent struct {
	Type           string   `json:"type"`
	Current        int      `json:"current"`
	Total          int      `json:"total"`
	CurrentFile    string   `json:"currentFile,omitempty"`
	Completed      int      `json:"completed"`
	Failed         int      `json:"failed"`
	Errors         []string `json:"errors"`
	BytesCopied    *int64   `json:"bytesCopied,omitempty"`
	BytesTotal     *int64   `json:"bytesTotal,omitempty"`
	BytesPerSecond *float64 `json:"bytesPerSecond,omitempty"`
	Message        string   `json:"message,omitempty"`
}

// Event type discriminators.
const (
	EventProgress     = "progress"
	EventFileProgress = "file_progress"
	EventComplete     = "complete"
	EventError        = "error"
)

// FolderRequest is the POST /api/folders body.
type FolderRequest struct {
	Pane string `json:"pane"`
	Path string `json:"path"`
}

// DeleteRequest is the POST /api/delete body.
type DeleteRequest struct {
	Pane string `json:"pane"`
	Path string `json:"path"`
}

// StatusResponse summarizes daemon runtime information.
type StatusResponse struct {
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	DownloadsDir string `json:"downloadsDir"`
	MediaDir     string `json:"mediaDir"`
	HistoryCount int    `json:"historyCount,omitempty"`
}

// HistoryRecord is one persisted transfer request outcome.
type HistoryRecord struct {
	RequestID   string   `json:"requestId"`
	Operation   string   `json:"operation"`
	Items       int      `json:"items"`
	Completed   int      `json:"completed"`
	Failed      int      `json:"failed"`
	BytesCopied int64    `json:"bytesCopied"`
	Errors      []string `json:"errors,omitempty"`
	StartedAt   string   `json:"startedAt"`
	FinishedAt  string   `json:"finishedAt"`
}

// HistoryResponse wraps the history listing.
type HistoryResponse struct {
	Records []HistoryRecord `json:"records"`
}

// ErrorResponse is the JSON body for non-streaming failures.
type ErrorResponse struct {
	Error string `json:"error"`
}
