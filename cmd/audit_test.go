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

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setAuditEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_REGION", "us-west-2")
	t.Setenv("OPENSEARCH_ENDPOINT", "search.example.com")
	t.Setenv("OPENSEARCH_INDEX", "parquet_stats")
	t.Setenv("OPENSEARCH_BUCKET", "insitu-bucket")
	t.Setenv("OPENSEARCH_PATH_PREFIX", "obs/")
}

func TestRunAudit_RejectsUnknownFormat(t *testing.T) {
	err := runAudit("", "yaml", "", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

// A requeue run without a destination queue must fail during setup,
// before any S3 or catalog work starts.
func TestRunAudit_RequeueWithoutDestinationFailsFast(t *testing.T) {
	setAuditEnv(t)

	err := runAudit("", formatRequeue, "", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue URL")
}

func TestRunAudit_MissingConfigFailsBeforeAWS(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	err := runAudit("", formatPlain, "", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required environment variables")
}
