package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"restack/internal/api"
	"restack/internal/config"
	"restack/internal/history"
	"restack/internal/logging"
	"restack/internal/paths"
	"restack/internal/transfer"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	mux := http.NewServeMux()
	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/transfers", srv.handleTransfers)
	mux.HandleFunc("/api/transfers/history", srv.handleHistory)
	mux.HandleFunc("/api/folders", srv.handleFolders)
	mux.HandleFunc("/api/delete", srv.handleDelete)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// handleTransfers runs a transfer request and streams progress as
// server-sent events. Request validation failures produce a plain JSON 400
// before any stream bytes are written; failures after the stream starts
// surface as error events on the stream itself.
func (s *apiServer) handleTransfers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var wireReq api.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&wireReq); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	req, err := wireReq.ToTransferRequest()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	requestID := uuid.NewString()
	logger := s.log().With(logging.String(logging.FieldRequestID, requestID))
	logger.Info("transfer request accepted",
		logging.String(logging.FieldOperation, string(req.Operation)),
		logging.Int("items", len(req.Items)))

	api.PrepareHeaders(w)
	w.WriteHeader(http.StatusOK)
	stream := api.NewStreamWriter(w)

	emit := func(evt transfer.Event) error {
		wireEvt, err := api.FromTransferEvent(evt)
		if err != nil {
			return err
		}
		return stream.WriteEvent(wireEvt)
	}

	started := time.Now().UTC()
	sess, runErr := s.daemon.orchestrator.Run(r.Context(), req, emit)
	finished := time.Now().UTC()
	if runErr != nil {
		logger.Warn("transfer request aborted", logging.Error(runErr))
	}
	if sess == nil {
		return
	}

	if s.daemon.store != nil {
		rec := history.Record{
			RequestID:   requestID,
			Operation:   string(req.Operation),
			Items:       len(req.Items),
			Completed:   sess.Completed,
			Failed:      sess.Failed,
			BytesCopied: sess.BytesCopied,
			Errors:      sess.Errors,
			StartedAt:   started,
			FinishedAt:  finished,
		}
		if err := s.daemon.store.Append(context.WithoutCancel(r.Context()), rec); err != nil {
			logger.Warn("failed to record transfer history", logging.Error(err))
		}
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.StatusResponse{
		Running:      status.Running,
		PID:          status.PID,
		DownloadsDir: status.DownloadsDir,
		MediaDir:     status.MediaDir,
		HistoryCount: status.HistoryCount,
	})
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.daemon.store == nil {
		s.writeJSON(w, http.StatusOK, api.HistoryResponse{Records: []api.HistoryRecord{}})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.daemon.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]api.HistoryRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, api.HistoryRecord{
			RequestID:   rec.RequestID,
			Operation:   rec.Operation,
			Items:       rec.Items,
			Completed:   rec.Completed,
			Failed:      rec.Failed,
			BytesCopied: rec.BytesCopied,
			Errors:      rec.Errors,
			StartedAt:   rec.StartedAt.Format(time.RFC3339),
			FinishedAt:  rec.FinishedAt.Format(time.RFC3339),
		})
	}
	s.writeJSON(w, http.StatusOK, api.HistoryResponse{Records: out})
}

func (s *apiServer) handleFolders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.FolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	base, targetDir, err := s.resolvePanePath(req.Pane, req.Path)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if targetDir == base {
		s.writeError(w, http.StatusBadRequest, "folder path must not be the pane root")
		return
	}

	sess := transfer.NewSession()
	if err := s.daemon.orchestrator.Engine().EnsureDirectory(r.Context(), targetDir, base, sess); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log().Info("folder created",
		logging.String(logging.FieldPane, req.Pane),
		logging.String("path", req.Path))
	s.writeJSON(w, http.StatusCreated, map[string]string{"path": req.Path})
}

func (s *apiServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	base, target, err := s.resolvePanePath(req.Pane, req.Path)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if target == base {
		s.writeError(w, http.StatusBadRequest, "refusing to delete the pane root")
		return
	}
	if _, err := os.Lstat(target); err != nil {
		if os.IsNotExist(err) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("Source not found: %s", req.Path))
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := os.RemoveAll(target); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log().Info("path deleted",
		logging.String(logging.FieldPane, req.Pane),
		logging.String("path", req.Path))
	s.writeJSON(w, http.StatusOK, map[string]string{"deleted": req.Path})
}

func (s *apiServer) resolvePanePath(pane, relPath string) (base string, abs string, err error) {
	base, err = s.daemon.roots.Base(paths.Pane(strings.ToLower(strings.TrimSpace(pane))))
	if err != nil {
		return "", "", fmt.Errorf("invalid pane %q", pane)
	}
	abs, err = paths.Resolve(base, relPath)
	if err != nil {
		return "", "", fmt.Errorf("invalid path %q", relPath)
	}
	return base, abs, nil
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
