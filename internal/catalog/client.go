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

// Package catalog talks to the OpenSearch index that holds one record per
// ingested parquet file. It provides the read-only existence checker used
// by audits and the upsert/delete writer used by the indexing pipeline.
package catalog

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/opensearch-project/opensearch-go/v2"
	requestsigner "github.com/opensearch-project/opensearch-go/v2/signer/awsv2"
)

// NewClient builds an OpenSearch client for the given endpoint and port,
// signing every request with AWS SigV4 for the "es" service.
func NewClient(endpoint string, port int, awsCfg aws.Config) (*opensearch.Client, error) {
	signer, err := requestsigner.NewSignerWithService(awsCfg, "es")
	if err != nil {
		return nil, fmt.Errorf("creating request signer: %w", err)
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{fmt.Sprintf("https://%s:%d", endpoint, port)},
		Signer:    signer,
	})
	if err != nil {
		return nil, fmt.Errorf("creating opensearch client: %w", err)
	}
	return client, nil
}
