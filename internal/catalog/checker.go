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
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// CheckStatus classifies the outcome of a single existence lookup.
type CheckStatus int

const (
	// StatusFound means the catalog explicitly reported the document as
	// existing.
	StatusFound CheckStatus = iota
	// StatusNotFound means the catalog answered "no document with this id".
	StatusNotFound
	// StatusError covers every other failure: transport, auth, index
	// unavailable, or a response that does not decode as a get response.
	StatusError
)

func (s CheckStatus) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("CheckStatus(%d)", int(s))
	}
}

// CheckResult is the closed set of lookup outcomes. Cause is set only for
// StatusError.
type CheckResult struct {
	Status CheckStatus
	Cause  error
}

func found() CheckResult    { return CheckResult{Status: StatusFound} }
func notFound() CheckResult { return CheckResult{Status: StatusNotFound} }
func checkErr(err error) CheckResult {
	return CheckResult{Status: StatusError, Cause: err}
}

// Checker performs exact-match get-by-id lookups against one index. It never
// retries: callers count failures and move on so one bad lookup cannot stall
// a scan.
type Checker struct {
	client *opensearch.Client
	index  string
}

func NewChecker(client *opensearch.Client, index string) *Checker {
	return &Checker{client: client, index: index}
}

// Check looks up a document id and classifies the response. A lookup is
// Found only when the response decodes and carries an explicit found flag;
// a 2xx that fails to round-trip as a get response is an error, not a hit.
func (c *Checker) Check(ctx context.Context, documentID string) CheckResult {
	req := opensearchapi.GetRequest{
		Index:      c.index,
		DocumentID: documentID,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return checkErr(fmt.Errorf("get %s: %w", documentID, err))
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return notFound()
	}
	if res.IsError() {
		return checkErr(fmt.Errorf("get %s: unexpected status %s", documentID, res.Status()))
	}

	var body struct {
		Found bool `json:"found"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return checkErr(fmt.Errorf("get %s: decoding response: %w", documentID, err))
	}
	if !body.Found {
		return notFound()
	}
	return found()
}
