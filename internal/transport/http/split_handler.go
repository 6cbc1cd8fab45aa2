package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"xlsxsplit/internal/config"
	apierrors "xlsxsplit/internal/errors"
	"xlsxsplit/internal/middleware"
	"xlsxsplit/internal/services"
	"xlsxsplit/internal/splitter"
	api "xlsxsplit/pkg/contracts/api/v1"
)

// multipartMemory is the part of an upload kept in memory; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

// SplitHandler serves the split endpoints
type SplitHandler struct {
	service        SplitServiceInterface
	validate       *validator.Validate
	errorHandler   *apierrors.ErrorHandler
	maxUploadBytes int64
	ws             config.WebSocketConfig
	upgrader       websocket.Upgrader
	logger         *slog.Logger
}

// NewSplitHandler creates a new split handler. Websocket origins are
// checked against cfg.Security.AllowedOrigins; an empty list allows any
// origin.
func NewSplitHandler(
	service SplitServiceInterface,
	errorHandler *apierrors.ErrorHandler,
	cfg *config.Config,
	logger *slog.Logger,
) *SplitHandler {
	if cfg == nil {
		cfg = config.Default()
	}

	h := &SplitHandler{
		service:        service,
		validate:       middleware.NewValidator(),
		errorHandler:   errorHandler,
		maxUploadBytes: cfg.Server.MaxUploadBytes,
		ws:             cfg.WebSocket,
		logger:         logger.With(slog.String("handler", "split")),
	}
	if h.maxUploadBytes <= 0 {
		h.maxUploadBytes = config.DefaultMaxUploadBytes
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     h.checkOrigin(cfg.Security.AllowedOrigins),
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.WarnContext(r.Context(), "websocket upgrade rejected",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			h.errorHandler.HandleError(w, r, apierrors.New(status, apierrors.CodeWebSocketUpgrade, reason.Error()))
		},
	}
	return h
}

// Routes returns a chi router for the /api/split endpoints
func (h *SplitHandler) Routes() chi.Router {
	jsonBody := middleware.NewValidationMiddleware(h.logger, h.errorHandler, h.maxUploadBytes)

	r := chi.NewRouter()
	r.With(middleware.ContentTypeValidator("application/json"), jsonBody.ValidateRequest).Post("/", h.Split)
	r.With(middleware.ContentTypeValidator("multipart/form-data")).Post("/upload", h.Upload)
	return r
}

// Split handles POST /api/split
func (h *SplitHandler) Split(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var req api.SplitRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, apierrors.PayloadTooLarge(h.maxUploadBytes))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := middleware.ValidateStruct(h.validate, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("split.date_column", req.DateColumn))

	res, err := h.service.Split(ctx, services.SourceJSON, splitter.Request{
		FilePayload: req.FilePayload,
		DateColumn:  req.DateColumn,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, api.SplitResponse{
		ArchivePayload: res.ArchivePayload,
		FileCount:      res.FileCount,
		Entries:        res.Entries,
		Stats:          toSplitStats(res.Stats),
	})
}

// Upload handles POST /api/split/upload. The response body is the zip.
func (h *SplitHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.ContentLength > h.maxUploadBytes {
		h.errorHandler.HandleError(w, r, apierrors.PayloadTooLarge(h.maxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, apierrors.PayloadTooLarge(h.maxUploadBytes))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File[api.FormFieldFile]
	switch {
	case len(files) == 0:
		h.errorHandler.HandleError(w, r, apierrors.ErrMissingFile)
		return
	case len(files) > 1:
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(api.FormFieldFile, "exactly one file must be uploaded"))
		return
	}
	header := files[0]

	form := api.UploadForm{
		Filename:   filepath.Base(header.Filename),
		DateColumn: r.FormValue(api.FormFieldDateColumn),
	}
	if h.validate.Var(form.Filename, "spreadsheet") != nil {
		h.errorHandler.HandleError(w, r, apierrors.UnsupportedFileType(form.Filename))
		return
	}
	if err := middleware.ValidateStruct(h.validate, &form); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	file, err := header.Open()
	if err != nil {
		h.errorHandler.HandleError(w, r, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		h.errorHandler.HandleError(w, r, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	archive, err := h.service.SplitBytes(ctx, services.SourceUpload, form.Filename, data, form.DateColumn)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	name := config.ArchiveFileName(form.Filename)
	w.Header().Set("Content-Type", splitter.MIMETypeZip)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive.Data)))
	w.Header().Set(api.HeaderFileCount, strconv.Itoa(archive.FileCount()))
	w.Header().Set(api.HeaderRowsRead, strconv.Itoa(archive.Stats.RowsRead))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(archive.Data); err != nil {
		h.logger.WarnContext(ctx, "failed to write archive",
			slog.String("filename", name),
			slog.String("error", err.Error()))
	}
}

// Stream handles GET /ws/split. The client sends one SplitRequest; the
// server answers with stage events followed by a result or an error.
func (h *SplitHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered the request
		return
	}
	defer conn.Close()

	h.logger.InfoContext(ctx, "websocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", middleware.GetRequestID(ctx)))

	sink := &wsSink{conn: conn, writeWait: h.ws.WriteWait}
	adapter := services.NewStageEventAdapter(sink, h.logger)

	conn.SetReadLimit(h.maxUploadBytes)
	if h.ws.PongWait > 0 {
		conn.SetReadDeadline(time.Now().Add(h.ws.PongWait))
	}

	var req api.SplitRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to read split request", slog.String("error", err.Error()))
		h.fail(ctx, sink, adapter, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := middleware.ValidateStruct(h.validate, &req); err != nil {
		h.fail(ctx, sink, adapter, err)
		return
	}

	res, err := h.service.Split(ctx, services.SourceWebSocket, splitter.Request{
		FilePayload: req.FilePayload,
		DateColumn:  req.DateColumn,
	}, adapter.Observer())
	if err != nil {
		h.fail(ctx, sink, adapter, err)
		return
	}

	if err := adapter.SendResult(ctx, res); err != nil {
		h.logger.WarnContext(ctx, "failed to send split result", slog.String("error", err.Error()))
		return
	}
	sink.close(websocket.CloseNormalClosure, "")
}

func (h *SplitHandler) fail(ctx context.Context, sink *wsSink, adapter *services.StageEventAdapter, err error) {
	if sendErr := adapter.SendError(ctx, apierrors.CodeOf(err), err); sendErr != nil {
		h.logger.WarnContext(ctx, "failed to send split error", slog.String("error", sendErr.Error()))
		return
	}
	sink.close(websocket.CloseNormalClosure, "")
}

// checkOrigin allows requests without an Origin header and requests from
// a configured origin.
func (h *SplitHandler) checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		h.logger.WarnContext(r.Context(), "websocket origin not allowed",
			slog.String("origin", origin),
			slog.Any("allowed_origins", allowed))
		return false
	}
}

func toSplitStats(s splitter.Stats) api.SplitStats {
	return api.SplitStats{
		Sheet:        s.Sheet,
		RowsRead:     s.RowsRead,
		RowsGrouped:  s.RowsGrouped,
		RowsSkipped:  s.RowsSkipped,
		ArchiveBytes: s.ArchiveBytes,
	}
}

// wsSink writes stream messages to one connection. The split runs on the
// handler goroutine, so writes never overlap.
type wsSink struct {
	conn      *websocket.Conn
	writeWait time.Duration
}

// Send implements services.EventSink
func (s *wsSink) Send(msg interface{}) error {
	if s.writeWait > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	}
	return s.conn.WriteJSON(msg)
}

func (s *wsSink) close(code int, text string) {
	deadline := time.Now().Add(time.Second)
	if s.writeWait > 0 {
		deadline = time.Now().Add(s.writeWait)
	}
	s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}
