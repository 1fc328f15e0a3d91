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
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/cdms-data/parquet-audit/internal/awsclient"
	"github.com/cdms-data/parquet-audit/internal/logctx"
)

// MessageHandler processes one raw notification body.
type MessageHandler interface {
	HandleMessage(ctx context.Context, raw []byte) error
}

// Consumer long-polls one SQS queue and hands each message to the handler.
// Messages are handled sequentially and deleted only after success, so a
// failed message stays on the queue for redelivery.
type Consumer struct {
	client   *awsclient.SQSClient
	queueURL string
	handler  MessageHandler

	handleTimeout time.Duration
}

func NewConsumer(client *awsclient.SQSClient, queueURL string, handler MessageHandler) *Consumer {
	return &Consumer{
		client:        client,
		queueURL:      queueURL,
		handler:       handler,
		handleTimeout: 5 * time.Minute,
	}
}

// Run polls until the context is cancelled.
func (c *Consumer) Run(doneCtx context.Context) error {
	log := logctx.FromContext(doneCtx)
	log.Info("Starting SQS polling loop", slog.String("queueURL", c.queueURL))

	for {
		select {
		case <-doneCtx.Done():
			log.Info("SQS polling loop stopped")
			return nil
		default:
		}

		result, err := c.client.Client.ReceiveMessage(doneCtx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if doneCtx.Err() != nil {
				return nil
			}
			log.Error("Failed to receive messages from SQS", slog.Any("error", err))
			time.Sleep(5 * time.Second)
			continue
		}

		for _, msg := range result.Messages {
			c.handleOne(doneCtx, msg)
		}
	}
}

func (c *Consumer) handleOne(doneCtx context.Context, msg types.Message) {
	log := logctx.FromContext(doneCtx)

	if msg.Body == nil {
		log.Warn("Received SQS message with nil body")
		return
	}

	msgCtx, cancel := context.WithTimeout(doneCtx, c.handleTimeout)
	defer cancel()

	if err := c.handler.HandleMessage(msgCtx, []byte(*msg.Body)); err != nil {
		log.Error("Failed to handle S3 event, leaving message in SQS for retry",
			slog.Any("error", err),
			slog.String("messageId", aws.ToString(msg.MessageId)))
		return
	}

	// Deletion uses its own context so it completes even if the main
	// context is cancelled mid-batch.
	deleteCtx, deleteCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer deleteCancel()

	_, err := c.client.Client.DeleteMessage(deleteCtx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		log.Error("Failed to delete SQS message after successful handling",
			slog.Any("error", err),
			slog.String("messageId", aws.ToString(msg.MessageId)))
	}
}
