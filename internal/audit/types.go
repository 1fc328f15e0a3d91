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

// Package audit drives the reconciliation of an S3 bucket's parquet
// inventory against the OpenSearch catalog: stream the listing, look up
// every key, collect the keys with no valid catalog record, and hand them
// to a sink. Scans running inside a bounded-time host suspend themselves
// near the deadline and request their own re-invocation with a resume
// cursor.
package audit

import "time"

// ObjectIdentity is one listed object. Immutable once produced by a lister.
type ObjectIdentity struct {
	Bucket       string
	Key          string
	Size         int64
	LastModified time.Time
}

// ResumeCursor marks where an interrupted scan restarts. LastSeenKey is the
// first key the suspended run did NOT process; the resumed run starts with
// it. The JSON field name is the re-invocation payload contract.
type ResumeCursor struct {
	LastSeenKey string `json:"ResumeFromKey"`
}

// State is the engine's position in its lifecycle, exposed for logging.
type State int

const (
	StateListing State = iota
	StateAuditing
	StateCompleted
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateListing:
		return "listing"
	case StateAuditing:
		return "auditing"
	case StateCompleted:
		return "completed"
	case StateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}
