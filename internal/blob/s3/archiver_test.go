package s3blob

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

type memBlob struct {
	objects map[string][]byte
	putErr  error
}

func newMemBlob() *memBlob {
	return &memBlob{objects: map[string][]byte{}}
}

func (m *memBlob) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = buf
	return nil
}

func (m *memBlob) Get(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBlob) List(_ context.Context, _ string) ([]domain.BlobInfo, error) {
	return nil, nil
}

func (m *memBlob) Exists(_ context.Context, path string) (bool, error) {
	_, ok := m.objects[path]
	return ok, nil
}

type memJournal struct {
	events  []domain.Event
	deleted bool
}

func (m *memJournal) ListBefore(_ context.Context, before time.Time, limit int) ([]domain.Event, error) {
	var out []domain.Event
	for _, ev := range m.events {
		if ev.Timestamp.Before(before) {
			out = append(out, ev)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memJournal) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	m.deleted = true
	var kept []domain.Event
	var n int64
	for _, ev := range m.events {
		if ev.Timestamp.Before(before) {
			n++
			continue
		}
		kept = append(kept, ev)
	}
	m.events = kept
	return n, nil
}

func journalWith(n int, ts time.Time) *memJournal {
	j := &memJournal{}
	for i := 0; i < n; i++ {
		j.events = append(j.events, domain.Event{
			ID:        string(rune('a' + i%26)),
			Kind:      domain.EventTransfer,
			Timestamp: ts,
		})
	}
	return j
}

func TestArchiveEventsExportsAndDeletes(t *testing.T) {
	require := require.New(t)

	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	journal := journalWith(3, cutoff.Add(-time.Hour))
	blob := newMemBlob()

	a := NewArchiver(blob, blob, journal)
	n, err := a.ArchiveEvents(context.Background(), cutoff)
	require.NoError(err)
	require.Equal(int64(3), n)
	require.True(journal.deleted)
	require.Empty(journal.events)

	data, ok := blob.objects["archive/events/2026-08/000.jsonl.gz"]
	require.True(ok)

	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(err)
	lines := 0
	dec := json.NewDecoder(gz)
	for dec.More() {
		var ev domain.Event
		require.NoError(dec.Decode(&ev))
		lines++
	}
	require.Equal(3, lines)
}

func TestArchiveEventsNothingToDo(t *testing.T) {
	require := require.New(t)

	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	journal := journalWith(2, cutoff.Add(time.Hour)) // all newer than cutoff
	blob := newMemBlob()

	n, err := NewArchiver(blob, blob, journal).ArchiveEvents(context.Background(), cutoff)
	require.NoError(err)
	require.Zero(n)
	require.False(journal.deleted)
	require.Empty(blob.objects)
}

func TestArchiveEventsKeepsRowsWhenUploadFails(t *testing.T) {
	require := require.New(t)

	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	journal := journalWith(2, cutoff.Add(-time.Hour))
	blob := newMemBlob()
	blob.putErr = errors.New("bucket unavailable")

	_, err := NewArchiver(blob, blob, journal).ArchiveEvents(context.Background(), cutoff)
	require.Error(err)
	require.False(journal.deleted)
	require.Len(journal.events, 2)
}
