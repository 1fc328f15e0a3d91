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
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink_WritesOneKeyPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")
	sink := &FileSink{Path: path}

	require.NoError(t, sink.Write(context.Background(), []string{"a", "c", "d"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nc\nd\n", string(data))
}

func TestFileSink_TruncatesPreviousReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale\ncontent\n"), 0o644))

	sink := &FileSink{Path: path}
	require.NoError(t, sink.Write(context.Background(), []string{"x"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(data))
}

func TestFileSink_EmptyPathIsNoOp(t *testing.T) {
	sink := &FileSink{}
	assert.NoError(t, sink.Write(context.Background(), []string{"a", "b"}))
}

func TestReconcileMessage_Shape(t *testing.T) {
	body, err := ReconcileMessage("insitu-bucket", "obs/2024/file.parquet")
	require.NoError(t, err)

	var evt struct {
		Records []struct {
			EventName string `json:"eventName"`
			S3        struct {
				Bucket struct {
					Name string `json:"name"`
				} `json:"bucket"`
				Object struct {
					Key string `json:"key"`
				} `json:"object"`
			} `json:"s3"`
		} `json:"Records"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &evt))

	require.Len(t, evt.Records, 1)
	assert.Equal(t, "ObjectCreated:Put", evt.Records[0].EventName)
	assert.Equal(t, "insitu-bucket", evt.Records[0].S3.Bucket.Name)
	assert.Equal(t, "obs/2024/file.parquet", evt.Records[0].S3.Object.Key)
}

type fakeSQS struct {
	bodies []string
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bodies = append(f.bodies, *params.MessageBody)
	return &sqs.SendMessageOutput{}, nil
}

type fakeSNS struct {
	subjects []string
	messages []string
}

func (f *fakeSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.subjects = append(f.subjects, *params.Subject)
	f.messages = append(f.messages, *params.Message)
	return &sns.PublishOutput{}, nil
}

func TestNewQueueSink_RequiresQueueURL(t *testing.T) {
	_, err := NewQueueSink(&fakeSQS{}, nil, "", "", "bkt")
	require.Error(t, err)
}

func TestQueueSink_OneMessagePerKey(t *testing.T) {
	sqsc := &fakeSQS{}
	sink, err := NewQueueSink(sqsc, nil, "https://sqs/queue", "", "bkt")
	require.NoError(t, err)

	require.NoError(t, sink.Write(context.Background(), []string{"a", "b"}))

	require.Len(t, sqsc.bodies, 2)
	want, _ := ReconcileMessage("bkt", "a")
	assert.Equal(t, want, sqsc.bodies[0])
}

func TestQueueSink_SummaryOnlyWithTopic(t *testing.T) {
	snsc := &fakeSNS{}

	sink, err := NewQueueSink(&fakeSQS{}, snsc, "https://sqs/queue", "", "bkt")
	require.NoError(t, err)
	require.NoError(t, sink.Write(context.Background(), []string{"a"}))
	assert.Empty(t, snsc.messages)

	sink, err = NewQueueSink(&fakeSQS{}, snsc, "https://sqs/queue", "arn:aws:sns:us-west-2:1:audit", "bkt")
	require.NoError(t, err)
	require.NoError(t, sink.Write(context.Background(), []string{"a", "b", "c"}))

	require.Len(t, snsc.messages, 1)
	assert.Equal(t, "Insitu audit", snsc.subjects[0])
	assert.Contains(t, snsc.messages[0], "3 missing keys")
}

func TestQueueSink_SendFailureStopsWrite(t *testing.T) {
	sink, err := NewQueueSink(&fakeSQS{err: errors.New("throttled")}, nil, "https://sqs/queue", "", "bkt")
	require.NoError(t, err)

	err = sink.Write(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
