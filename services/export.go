package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"jobfeed/models"
	"jobfeed/storage"
)

type Uploader interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
}

// SnapshotExporter dumps the active corpus as NDJSON and uploads it.
type SnapshotExporter struct {
	store    storage.JobStore
	uploader Uploader
	now      func() time.Time
}

func NewSnapshotExporter(store storage.JobStore, uploader Uploader) *SnapshotExporter {
	return &SnapshotExporter{store: store, uploader: uploader, now: time.Now}
}

type SnapshotResult struct {
	Key      string `json:"key"`
	Postings int    `json:"postings"`
	Bytes    int    `json:"bytes"`
}

func (e *SnapshotExporter) Export(ctx context.Context) (*SnapshotResult, error) {
	postings, err := e.store.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	var buf bytes.Buffer
	n, err := WriteNDJSON(&buf, postings)
	if err != nil {
		return nil, err
	}

	result := &SnapshotResult{Key: storage.SnapshotKey(e.now()), Postings: n, Bytes: buf.Len()}
	if err := e.uploader.Upload(ctx, result.Key, &buf, "application/x-ndjson"); err != nil {
		return nil, err
	}
	return result, nil
}

// WriteNDJSON writes one JSON document per line and returns how many it wrote.
func WriteNDJSON(w io.Writer, postings []models.JobPosting) (int, error) {
	enc := json.NewEncoder(w)
	for i := range postings {
		if err := enc.Encode(&postings[i]); err != nil {
			return i, fmt.Errorf("encode posting %s: %w", postings[i].ID, err)
		}
	}
	return len(postings), nil
}
