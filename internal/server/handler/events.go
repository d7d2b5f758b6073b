package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

// EventHandler serves the transition journal, its durable stream, and the
// cold archive in object storage.
type EventHandler struct {
	store         domain.EventStore
	bus           domain.EventBus
	stream        string
	blobs         domain.BlobReader
	archivePrefix string
	logger        *slog.Logger
}

// NewEventHandler creates an EventHandler. store, bus, and blobs may each be
// nil when the corresponding backend is not wired; the affected endpoints
// then return 501.
func NewEventHandler(store domain.EventStore, bus domain.EventBus, stream string, blobs domain.BlobReader, archivePrefix string, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		store:         store,
		bus:           bus,
		stream:        stream,
		blobs:         blobs,
		archivePrefix: archivePrefix,
		logger:        logHandler(logger, "events"),
	}
}

// List responds with journal entries, newest first, optionally filtered by
// kind.
// GET /api/events?kind=claim_declared&limit=100
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotImplemented, "the journal requires the database")
		return
	}

	opts := parseListOpts(r)

	var (
		events []domain.Event
		err    error
	)
	if kind := r.URL.Query().Get("kind"); kind != "" {
		events, err = h.store.ListByKind(r.Context(), domain.EventKind(kind), opts)
	} else {
		events, err = h.store.ListRecent(r.Context(), opts.Limit)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list events", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(events),
		"events": events,
	})
}

// Stream responds with a page of the durable Redis stream, for consumers that
// poll with a cursor instead of holding a websocket.
// GET /api/events/stream?last_id=0&count=100
func (h *EventHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		writeError(w, http.StatusNotImplemented, "the event stream requires redis")
		return
	}

	lastID := r.URL.Query().Get("last_id")
	if lastID == "" {
		lastID = "0"
	}
	count := 100
	if v := r.URL.Query().Get("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			count = n
		}
	}

	msgs, err := h.bus.StreamRead(r.Context(), h.stream, lastID, count)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "read event stream", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	type entry struct {
		ID      string `json:"id"`
		Payload string `json:"payload"`
	}
	out := make([]entry, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, entry{ID: m.ID, Payload: string(m.Payload)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(out),
		"entries": out,
	})
}

// ListArchives responds with the archived journal batches in object storage,
// one entry per part file.
// GET /api/events/archive
func (h *EventHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusNotImplemented, "the archive requires object storage")
		return
	}

	infos, err := h.blobs.List(r.Context(), h.archivePrefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list archives", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	type batch struct {
		Key          string `json:"key"`
		Size         int64  `json:"size"`
		LastModified string `json:"last_modified"`
	}
	out := make([]batch, 0, len(infos))
	for _, info := range infos {
		out = append(out, batch{
			Key:          strings.TrimPrefix(info.Path, h.archivePrefix),
			Size:         info.Size,
			LastModified: info.LastModified.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(out),
		"batches": out,
	})
}

// GetArchive streams one archived batch (gzipped JSONL) back to the caller.
// GET /api/events/archive/{key...}
func (h *EventHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusNotImplemented, "the archive requires object storage")
		return
	}

	key := r.PathValue("key")
	if key == "" || strings.Contains(key, "..") {
		writeError(w, http.StatusBadRequest, "invalid archive key")
		return
	}

	body, err := h.blobs.Get(r.Context(), h.archivePrefix+key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "archive batch not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get archive", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/gzip")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "stream archive", slog.String("error", err.Error()))
	}
}
