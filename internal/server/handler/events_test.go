package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

type memBlobReader struct {
	objects map[string][]byte
}

func (m *memBlobReader) Get(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (m *memBlobReader) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var infos []domain.BlobInfo
	for path, data := range m.objects {
		if strings.HasPrefix(path, prefix) {
			infos = append(infos, domain.BlobInfo{
				Path:         path,
				Size:         int64(len(data)),
				LastModified: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			})
		}
	}
	return infos, nil
}

func (m *memBlobReader) Exists(_ context.Context, path string) (bool, error) {
	_, ok := m.objects[path]
	return ok, nil
}

func newEventHandler(blobs domain.BlobReader) *EventHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEventHandler(nil, nil, "shares.events.stream", blobs, "archive/events/", logger)
}

func TestListArchives(t *testing.T) {
	require := require.New(t)

	blobs := &memBlobReader{objects: map[string][]byte{
		"archive/events/2026-07/000.jsonl.gz": []byte("batch"),
		"unrelated/key":                       []byte("x"),
	}}
	h := newEventHandler(blobs)

	rec := httptest.NewRecorder()
	h.ListArchives(rec, httptest.NewRequest(http.MethodGet, "/api/events/archive", nil))

	require.Equal(http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(float64(1), body["count"])
	batches := body["batches"].([]any)
	first := batches[0].(map[string]any)
	require.Equal("2026-07/000.jsonl.gz", first["key"])
	require.Equal(float64(5), first["size"])
}

func TestGetArchiveStreamsBatch(t *testing.T) {
	require := require.New(t)

	blobs := &memBlobReader{objects: map[string][]byte{
		"archive/events/2026-07/000.jsonl.gz": []byte("gzipped payload"),
	}}
	h := newEventHandler(blobs)

	req := httptest.NewRequest(http.MethodGet, "/api/events/archive/2026-07/000.jsonl.gz", nil)
	req.SetPathValue("key", "2026-07/000.jsonl.gz")
	rec := httptest.NewRecorder()
	h.GetArchive(rec, req)

	require.Equal(http.StatusOK, rec.Code)
	require.Equal("application/gzip", rec.Header().Get("Content-Type"))
	require.Equal("gzipped payload", rec.Body.String())
}

func TestGetArchiveRejectsBadKeys(t *testing.T) {
	require := require.New(t)
	h := newEventHandler(&memBlobReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/events/archive/..", nil)
	req.SetPathValue("key", "../secrets")
	rec := httptest.NewRecorder()
	h.GetArchive(rec, req)
	require.Equal(http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/events/archive/2026-07/missing.jsonl.gz", nil)
	req.SetPathValue("key", "2026-07/missing.jsonl.gz")
	rec = httptest.NewRecorder()
	h.GetArchive(rec, req)
	require.Equal(http.StatusNotFound, rec.Code)
}

func TestArchiveEndpointsWithoutObjectStorage(t *testing.T) {
	require := require.New(t)
	h := newEventHandler(nil)

	rec := httptest.NewRecorder()
	h.ListArchives(rec, httptest.NewRequest(http.MethodGet, "/api/events/archive", nil))
	require.Equal(http.StatusNotImplemented, rec.Code)
}