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
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cdms-data/parquet-audit/config"
	"github.com/cdms-data/parquet-audit/internal/awsclient"
	"github.com/cdms-data/parquet-audit/internal/catalog"
	"github.com/cdms-data/parquet-audit/internal/pubsub"
	"github.com/cdms-data/parquet-audit/internal/stats"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Consume S3 lifecycle notifications and keep the catalog in sync",
	Long: `Long-polls the configured SQS queue for S3 object notifications. Created
objects are downloaded (or delegated to the extraction service), their
statistics extracted, and a record upserted into OpenSearch; removed objects
have their record deleted. Staging paths are skipped.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runIndex()
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

// countingHandler wraps the pipeline handler with the events counter.
type countingHandler struct {
	inner pubsub.MessageHandler
}

func (h countingHandler) HandleMessage(ctx context.Context, raw []byte) error {
	if err := h.inner.HandleMessage(ctx, raw); err != nil {
		return err
	}
	eventsIngested.Add(ctx, 1)
	return nil
}

func runIndex() error {
	doneCtx, doneCancel := setupLogging("index")
	defer doneCancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Index.QueueURL == "" {
		return errors.New("required environment variables are not set: SQS_QUEUE_URL")
	}

	mgr, err := awsclient.NewManager(doneCtx,
		awsclient.WithStaticCredentials(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, cfg.AWS.SessionToken),
	)
	if err != nil {
		return err
	}

	osClient, err := catalog.NewClient(cfg.Catalog.Endpoint, cfg.Catalog.Port, mgr.BaseConfig())
	if err != nil {
		return fmt.Errorf("connecting to catalog: %w", err)
	}
	indexer := catalog.NewIndexer(osClient, cfg.Catalog.Index)

	var extractor stats.Extractor
	if cfg.Index.ExtractorURL != "" {
		extractor = stats.NewRemoteExtractor(cfg.Index.ExtractorURL)
	} else {
		extractor = stats.NewLocalExtractor(mgr.GetS3(), "")
	}

	handler := pubsub.NewHandler(indexer, extractor, cfg.Catalog.IDPrefix)
	consumer := pubsub.NewConsumer(mgr.GetSQS(), cfg.Index.QueueURL, countingHandler{inner: handler})

	return consumer.Run(doneCtx)
}
