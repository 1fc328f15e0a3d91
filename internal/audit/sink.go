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

package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/cdms-data/parquet-audit/internal/logctx"
)

// Sink receives the finalized missing-key sequence of a scan pass. Writes
// are not exactly-once across overlapping suspend/resume boundaries;
// downstream consumers must tolerate duplicates.
type Sink interface {
	Write(ctx context.Context, missing []string) error
}

// FileSink writes missing keys as newline-delimited plain text. An empty
// path is an explicit no-op: keys are counted and logged, not persisted.
type FileSink struct {
	Path string
}

func (s *FileSink) Write(ctx context.Context, missing []string) error {
	log := logctx.FromContext(ctx)

	if s.Path == "" {
		log.Info("Not writing missing keys to file as none was given",
			slog.Int("missing", len(missing)))
		return nil
	}

	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("creating report file %s: %w", s.Path, err)
	}
	defer func() { _ = f.Close() }()

	for _, key := range missing {
		if _, err := fmt.Fprintln(f, key); err != nil {
			return fmt.Errorf("writing report file %s: %w", s.Path, err)
		}
	}

	log.Info("Wrote missing keys to file",
		slog.String("path", s.Path), slog.Int("missing", len(missing)))
	return f.Close()
}

// ReconcileMessage builds the synthetic S3 object-created notification that
// forces the indexing pipeline to re-ingest one key. The shape must match
// the real S3 event notification schema exactly or downstream ingestion
// will not trigger.
func ReconcileMessage(bucket, key string) (string, error) {
	evt := map[string]any{
		"Records": []any{
			map[string]any{
				"eventName": "ObjectCreated:Put",
				"s3": map[string]any{
					"bucket": map[string]any{"name": bucket},
					"object": map[string]any{"key": key},
				},
			},
		},
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return "", fmt.Errorf("marshaling reconcile message for %s: %w", key, err)
	}
	return string(body), nil
}

// SQSSender is the slice of the SQS API the sink needs.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SNSPublisher is the slice of the SNS API the sink needs.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// QueueSink requeues every missing key as a reconcile message, one SQS
// message per key, then optionally publishes a summary alert to SNS.
type QueueSink struct {
	sqs      SQSSender
	sns      SNSPublisher
	queueURL string
	topicARN string
	bucket   string
}

// NewQueueSink fails when no queue URL is configured so the misconfiguration
// surfaces before any listing work is attempted.
func NewQueueSink(sqsClient SQSSender, snsClient SNSPublisher, queueURL, topicARN, bucket string) (*QueueSink, error) {
	if queueURL == "" {
		return nil, errors.New("requeue output requires a destination queue URL")
	}
	return &QueueSink{
		sqs:      sqsClient,
		sns:      snsClient,
		queueURL: queueURL,
		topicARN: topicARN,
		bucket:   bucket,
	}, nil
}

func (s *QueueSink) Write(ctx context.Context, missing []string) error {
	log := logctx.FromContext(ctx)

	for _, key := range missing {
		body, err := ReconcileMessage(s.bucket, key)
		if err != nil {
			return err
		}
		_, err = s.sqs.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(s.queueURL),
			MessageBody: aws.String(body),
		})
		if err != nil {
			return fmt.Errorf("requeueing key %s: %w", key, err)
		}
	}

	log.Info("Requeued missing keys for reindexing",
		slog.String("queue", s.queueURL), slog.Int("missing", len(missing)))

	if s.topicARN != "" && s.sns != nil {
		msg := fmt.Sprintf("Parquet stats audit found %d missing keys. Trying to republish to SQS.", len(missing))
		_, err := s.sns.Publish(ctx, &sns.PublishInput{
			TopicArn: aws.String(s.topicARN),
			Subject:  aws.String("Insitu audit"),
			Message:  aws.String(msg),
		})
		if err != nil {
			return fmt.Errorf("publishing audit summary to %s: %w", s.topicARN, err)
		}
	}

	return nil
}
