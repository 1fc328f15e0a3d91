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

// Package pubsub consumes S3 object lifecycle notifications from SQS and
// keeps the OpenSearch catalog synchronized: upsert on creation, delete on
// removal. The audit engine's requeue sink feeds this same path with
// synthetic creation events.
package pubsub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// ObjectEvent is one parsed lifecycle record from an S3 event notification.
type ObjectEvent struct {
	Name   string // eg. "ObjectCreated:Put"
	Bucket string
	Key    string
	Size   int64
}

// S3URL returns the object's s3:// URL, which doubles as the catalog
// document id when the id prefix is the default.
func (e ObjectEvent) S3URL() string {
	return fmt.Sprintf("s3://%s/%s", e.Bucket, e.Key)
}

// stagingMarkers identify transient files written by ingestion jobs that
// must never be cataloged.
var stagingMarkers = []string{"spark-staging", "_temporary"}

// IsStaging reports whether the event's key belongs to a transient/staging
// path.
func (e ObjectEvent) IsStaging() bool {
	for _, marker := range stagingMarkers {
		if strings.Contains(e.Key, marker) {
			return true
		}
	}
	return false
}

// ParseS3Event parses an S3 event notification body. Records that cannot be
// parsed are logged and skipped so one malformed record does not discard its
// siblings.
func ParseS3Event(raw []byte) ([]ObjectEvent, error) {
	var evt struct {
		Records []struct {
			EventName string `json:"eventName"`
			S3        struct {
				Bucket struct {
					Name string `json:"name"`
				} `json:"bucket"`
				Object struct {
					Key  string `json:"key"`
					Size int64  `json:"size"`
				} `json:"object"`
			} `json:"s3"`
		} `json:"Records"`
	}

	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, fmt.Errorf("failed to parse S3 event: %w", err)
	}

	out := make([]ObjectEvent, 0, len(evt.Records))
	for _, rec := range evt.Records {
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			slog.Error("Failed to unescape object key",
				slog.String("key", rec.S3.Object.Key), slog.Any("error", err))
			continue
		}
		if rec.S3.Bucket.Name == "" || key == "" {
			slog.Error("Skipping S3 record without bucket or key",
				slog.String("eventName", rec.EventName))
			continue
		}
		out = append(out, ObjectEvent{
			Name:   rec.EventName,
			Bucket: rec.S3.Bucket.Name,
			Key:    key,
			Size:   rec.S3.Object.Size,
		})
	}
	return out, nil
}
