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

package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RemoteExtractor delegates statistics extraction to the extraction
// service instead of downloading and parsing the file here.
type RemoteExtractor struct {
	baseURL    string
	httpClient *http.Client
}

func NewRemoteExtractor(baseURL string) *RemoteExtractor {
	return &RemoteExtractor{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (e *RemoteExtractor) Extract(ctx context.Context, bucket, key string) (*Document, error) {
	u := fmt.Sprintf("%s/parquet_stats?key=%s", e.baseURL, url.QueryEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building extraction request for %s: %w", key, err)
	}

	res, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling extraction service for %s: %w", key, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned %s for %s", res.Status, key)
	}

	var doc Document
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding extraction response for %s: %w", key, err)
	}
	return &doc, nil
}
