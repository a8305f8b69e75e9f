package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"restack/internal/api"
	"restack/internal/config"
	"restack/internal/history"
	"restack/internal/logging"
	"restack/internal/paths"
	"restack/internal/permissions"
	"restack/internal/transfer"
)

func newTransferCommand(cmdCtx *commandContext) *cobra.Command {
	var destFolder string
	var move bool
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "transfer <source>...",
		Short: "Copy or move files from downloads into the media library",
		Long: "Transfer runs directly against the configured panes without the daemon. " +
			"Sources are paths relative to the downloads directory; each lands in the " +
			"destination folder under its own name.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			operation := "copy"
			if move {
				operation = "move"
			}
			wireReq := api.TransferRequest{
				Operation:         operation,
				SourcePaths:       args,
				DestinationFolder: destFolder,
				Overwrite:         overwrite,
			}
			req, err := wireReq.ToTransferRequest()
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{Level: "warn", Format: "console"})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			perms, err := permissions.New(cfg, logger)
			if err != nil {
				return err
			}
			roots, err := paths.NewRoots(cfg)
			if err != nil {
				return err
			}
			orchestrator := transfer.NewOrchestrator(roots, perms, logger)

			interactive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
			progress := newTransferProgress(cmd, interactive)

			started := time.Now().UTC()
			sess, runErr := orchestrator.Run(cmd.Context(), req, progress.observe)
			progress.close()
			if sess != nil && cfg.History.Enabled {
				recordLocalHistory(cmd, cfg, req, sess, started)
			}
			if runErr != nil {
				return runErr
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d succeeded, %d failed, %s transferred\n",
				sess.Completed, sess.Failed, humanize.Bytes(uint64(sess.BytesCopied)))
			for _, msg := range sess.Errors {
				fmt.Fprintln(out, msg)
			}
			if sess.Failed > 0 {
				return fmt.Errorf("%d of %d items failed", sess.Failed, len(req.Items))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&destFolder, "to", "t", "", "Destination folder inside the media directory")
	cmd.Flags().BoolVar(&move, "move", false, "Move instead of copy")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing destinations")
	return cmd
}

// transferProgress renders engine events as a byte progress bar per file.
type transferProgress struct {
	cmd         *cobra.Command
	interactive bool
	currentFile string
	bar         *progressbar.ProgressBar
}

func newTransferProgress(cmd *cobra.Command, interactive bool) *transferProgress {
	return &transferProgress{cmd: cmd, interactive: interactive}
}

func (p *transferProgress) observe(evt transfer.Event) error {
	switch e := evt.(type) {
	case transfer.ProgressEvent:
		if e.CurrentFile != "" && e.CurrentFile != p.currentFile {
			p.finishBar()
			p.currentFile = e.CurrentFile
		}
	case transfer.FileProgressEvent:
		if p.bar == nil || e.CurrentFile != p.currentFile {
			p.finishBar()
			p.currentFile = e.CurrentFile
			if p.interactive {
				p.bar = progressbar.DefaultBytes(e.BytesTotal, e.CurrentFile)
			} else {
				p.bar = progressbar.DefaultBytesSilent(e.BytesTotal, e.CurrentFile)
			}
		}
		_ = p.bar.Set64(e.BytesCopied)
	case transfer.CompleteEvent:
		p.finishBar()
	case transfer.ErrorEvent:
		p.finishBar()
		fmt.Fprintln(p.cmd.ErrOrStderr(), e.Message)
	}
	return nil
}

func (p *transferProgress) finishBar() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

func (p *transferProgress) close() {
	p.finishBar()
}

func recordLocalHistory(cmd *cobra.Command, cfg *config.Config, req transfer.Request, sess *transfer.Session, started time.Time) {
	store, err := history.Open(cfg)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to open history store: %v\n", err)
		return
	}
	defer store.Close()

	rec := history.Record{
		RequestID:   uuid.NewString(),
		Operation:   string(req.Operation),
		Items:       len(req.Items),
		Completed:   sess.Completed,
		Failed:      sess.Failed,
		BytesCopied: sess.BytesCopied,
		Errors:      sess.Errors,
		StartedAt:   started,
		FinishedAt:  time.Now().UTC(),
	}
	if err := store.Append(cmd.Context(), rec); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to record history: %v\n", err)
	}
}
