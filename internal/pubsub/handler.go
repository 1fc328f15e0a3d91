// Copyright 2025 CDMS Data Services
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cdms-data/parquet-audit/internal/catalog"
	"github.com/cdms-data/parquet-audit/internal/logctx"
	"github.com/cdms-data/parquet-audit/internal/stats"
)

// CatalogWriter is the slice of the catalog the handler needs.
type CatalogWriter interface {
	Index(ctx context.Context, documentID string, doc any) error
	Delete(ctx context.Context, documentID string) error
}

// record is the full catalog document for one parquet file: the object's
// identity plus its extracted statistics.
type record struct {
	S3URL  string `json:"s3_url"`
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Size   int64  `json:"size"`
	stats.Document
}

// Handler routes parsed lifecycle events into catalog writes. Events are
// handled strictly in order: per-key ordering between a create and a remove
// must be preserved.
type Handler struct {
	writer    CatalogWriter
	extractor stats.Extractor
	idPrefix  string
}

func NewHandler(writer CatalogWriter, extractor stats.Extractor, idPrefix string) *Handler {
	return &Handler{writer: writer, extractor: extractor, idPrefix: idPrefix}
}

// HandleMessage processes one SQS message body. An error from any record
// fails the whole message so it stays on the queue for redelivery.
func (h *Handler) HandleMessage(ctx context.Context, raw []byte) error {
	log := logctx.FromContext(ctx)

	events, err := ParseS3Event(raw)
	if err != nil {
		return err
	}

	for _, evt := range events {
		if evt.IsStaging() {
			log.Debug("Skipping staging file", slog.String("key", evt.Key))
			continue
		}

		name := strings.ToLower(strings.TrimSpace(evt.Name))
		switch {
		case strings.HasPrefix(name, "objectcreated"):
			if err := h.ingest(ctx, evt); err != nil {
				return err
			}
		case strings.HasPrefix(name, "objectremoved"):
			if err := h.remove(ctx, evt); err != nil {
				return err
			}
		default:
			log.Error("Invalid S3 event name, skipping record",
				slog.String("eventName", evt.Name), slog.String("key", evt.Key))
		}
	}
	return nil
}

func (h *Handler) ingest(ctx context.Context, evt ObjectEvent) error {
	log := logctx.FromContext(ctx)
	log.Debug("Indexing file", slog.String("s3_url", evt.S3URL()))

	doc, err := h.extractor.Extract(ctx, evt.Bucket, evt.Key)
	if err != nil {
		return fmt.Errorf("extracting stats for %s: %w", evt.S3URL(), err)
	}

	rec := record{
		S3URL:    evt.S3URL(),
		Bucket:   evt.Bucket,
		Key:      evt.Key,
		Size:     evt.Size,
		Document: *doc,
	}
	docID := catalog.DocumentID(h.idPrefix, evt.Key)
	if err := h.writer.Index(ctx, docID, rec); err != nil {
		return fmt.Errorf("indexing %s: %w", evt.S3URL(), err)
	}
	return nil
}

func (h *Handler) remove(ctx context.Context, evt ObjectEvent) error {
	log := logctx.FromContext(ctx)
	log.Debug("Removing file from index", slog.String("s3_url", evt.S3URL()))

	docID := catalog.DocumentID(h.idPrefix, evt.Key)
	if err := h.writer.Delete(ctx, docID); err != nil {
		return fmt.Errorf("removing %s from index: %w", evt.S3URL(), err)
	}
	return nil
}
