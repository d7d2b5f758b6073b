package s3blob

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

// ArchivePrefix is the object-key prefix under which journal batches are
// stored. The events API lists and serves archived batches below it.
const ArchivePrefix = "archive/events/"

// archiveBatchSize bounds how many journal rows go into a single archive
// object. Months with more rows produce multiple part files.
const archiveBatchSize = 10000

// EventArchiveStore is the narrow slice of the journal store the archiver
// needs: time-ranged reads plus the post-verification delete.
type EventArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Event, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver implements domain.Archiver by exporting old journal entries to
// object storage as gzipped JSONL and deleting them from the primary store
// once every upload has been verified.
type Archiver struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	events EventArchiveStore
}

// NewArchiver creates an Archiver that moves journal rows older than a cutoff
// into the given blob store.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, events EventArchiveStore) *Archiver {
	return &Archiver{
		writer: writer,
		reader: reader,
		events: events,
	}
}

// ArchiveEvents exports all journal entries with a timestamp strictly before
// the cutoff to archive/events/YYYY-MM/<part>.jsonl.gz, verifies each upload
// landed, and then deletes the exported rows. It returns the number of rows
// archived.
//
// Rows are only deleted after every part file has been verified, so a failed
// run leaves the journal intact and is safe to retry.
func (a *Archiver) ArchiveEvents(ctx context.Context, before time.Time) (int64, error) {
	var (
		exported int64
		part     int
	)
	for {
		// Rows stay in the store until the final delete, so each round
		// re-reads the window and skips the rows already exported.
		events, err := a.events.ListBefore(ctx, before, int(exported)+archiveBatchSize)
		if err != nil {
			return exported, fmt.Errorf("s3blob: archive events query: %w", err)
		}
		if int64(len(events)) <= exported {
			break
		}
		batch := events[exported:]

		buf, err := marshalGzippedJSONL(batch)
		if err != nil {
			return exported, fmt.Errorf("s3blob: archive events marshal: %w", err)
		}

		path := archivePath(before, part)
		if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/gzip"); err != nil {
			return exported, fmt.Errorf("s3blob: archive events upload: %w", err)
		}

		ok, err := a.reader.Exists(ctx, path)
		if err != nil {
			return exported, fmt.Errorf("s3blob: archive events verify: %w", err)
		}
		if !ok {
			return exported, fmt.Errorf("s3blob: archive events verify: %s missing after upload", path)
		}

		exported += int64(len(batch))
		part++

		if len(batch) < archiveBatchSize {
			break
		}
	}

	if exported == 0 {
		return 0, nil
	}

	if _, err := a.events.DeleteBefore(ctx, before); err != nil {
		return exported, fmt.Errorf("s3blob: archive events delete: %w", err)
	}
	return exported, nil
}

// archivePath builds the object key for an archive part, partitioned by the
// year-month of the cutoff time.
//
//	archive/events/2026-08/000.jsonl.gz
func archivePath(before time.Time, part int) string {
	return fmt.Sprintf("%s%s/%03d.jsonl.gz", ArchivePrefix, before.Format("2006-01"), part)
}

// marshalGzippedJSONL serialises events as newline-delimited JSON and
// compresses the result with gzip.
func marshalGzippedJSONL(events []domain.Event) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)

	enc := json.NewEncoder(gz)
	enc.SetEscapeHTML(false)
	for i, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
