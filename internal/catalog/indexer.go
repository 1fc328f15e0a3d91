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

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// Indexer writes per-file records into one index. Index is an upsert keyed
// by document id, so replaying the same lifecycle event is harmless.
type Indexer struct {
	client *opensearch.Client
	index  string
}

func NewIndexer(client *opensearch.Client, index string) *Indexer {
	return &Indexer{client: client, index: index}
}

// Index upserts doc under the given document id.
func (ix *Indexer) Index(ctx context.Context, documentID string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling document %s: %w", documentID, err)
	}

	req := opensearchapi.IndexRequest{
		Index:      ix.index,
		DocumentID: documentID,
		Body:       bytes.NewReader(payload),
	}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", documentID, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("indexing %s: unexpected status %s", documentID, res.Status())
	}
	return nil
}

// Delete removes the document with the given id. A missing document is not
// an error so removal events can be replayed.
func (ix *Indexer) Delete(ctx context.Context, documentID string) error {
	req := opensearchapi.DeleteRequest{
		Index:      ix.index,
		DocumentID: documentID,
	}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", documentID, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("deleting %s: unexpected status %s", documentID, res.Status())
	}
	return nil
}
