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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cdms-data/parquet-audit/config"
	"github.com/cdms-data/parquet-audit/internal/audit"
	"github.com/cdms-data/parquet-audit/internal/awsclient"
	"github.com/cdms-data/parquet-audit/internal/catalog"
)

const (
	formatPlain   = "plain"
	formatRequeue = "requeue"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit parquet files in S3 against records in OpenSearch",
	Long: `Scans the configured bucket prefix and reports every S3 key that has no
valid record in the OpenSearch catalog. With --format plain the keys are
written to the output file; with --format requeue the output destination is
an SQS queue URL and each missing key is republished as a synthetic S3
object-created event to trigger reindexing.`,
	RunE: func(c *cobra.Command, _ []string) error {
		output, err := c.Flags().GetString("output-file")
		if err != nil {
			return fmt.Errorf("failed to get output-file flag: %w", err)
		}
		format, err := c.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("failed to get format flag: %w", err)
		}
		snsTopic, err := c.Flags().GetString("sns-topic")
		if err != nil {
			return fmt.Errorf("failed to get sns-topic flag: %w", err)
		}
		resumeFromKey, err := c.Flags().GetString("resume-from-key")
		if err != nil {
			return fmt.Errorf("failed to get resume-from-key flag: %w", err)
		}
		timeBudget, err := c.Flags().GetDuration("time-budget")
		if err != nil {
			return fmt.Errorf("failed to get time-budget flag: %w", err)
		}

		return runAudit(output, format, snsTopic, resumeFromKey, timeBudget)
	},
}

func init() {
	auditCmd.Flags().StringP("output-file", "o", "",
		"file to output the S3 keys of the files that are not found in OpenSearch (queue URL with --format requeue)")
	auditCmd.Flags().StringP("format", "f", formatPlain,
		"output format: 'plain' writes missing keys to the output file; 'requeue' republishes each missing key to SQS (output-file is the queue URL) as an S3 object-created event")
	auditCmd.Flags().String("sns-topic", "",
		"SNS topic ARN for a summary alert after requeueing (requeue format only)")
	auditCmd.Flags().String("resume-from-key", "",
		"S3 key to resume an interrupted scan from")
	auditCmd.Flags().Duration("time-budget", 0,
		"execution time budget after which the scan suspends and requests re-invocation (0 = unbounded)")

	rootCmd.AddCommand(auditCmd)
}

func runAudit(output, format, snsTopic, resumeFromKey string, timeBudget time.Duration) error {
	doneCtx, doneCancel := setupLogging("audit")
	defer doneCancel()

	if format != formatPlain && format != formatRequeue {
		return fmt.Errorf("unknown output format %q", format)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	mgr, err := awsclient.NewManager(doneCtx,
		awsclient.WithStaticCredentials(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, cfg.AWS.SessionToken),
	)
	if err != nil {
		return err
	}

	// The sink is built before any listing work so a requeue run without a
	// destination fails before touching S3.
	var sink audit.Sink
	switch format {
	case formatPlain:
		sink = &audit.FileSink{Path: output}
	case formatRequeue:
		var snsClient audit.SNSPublisher
		if snsTopic != "" {
			snsClient = mgr.GetSNS().Client
		}
		qs, err := audit.NewQueueSink(mgr.GetSQS().Client, snsClient, output, snsTopic, cfg.Catalog.Bucket)
		if err != nil {
			return err
		}
		sink = qs
	}

	osClient, err := catalog.NewClient(cfg.Catalog.Endpoint, cfg.Catalog.Port, mgr.BaseConfig())
	if err != nil {
		return fmt.Errorf("connecting to catalog: %w", err)
	}

	var retrigger audit.Retrigger = audit.NopRetrigger{}
	if cfg.Audit.LambdaFunction != "" {
		retrigger = audit.NewLambdaRetrigger(mgr.GetLambda().Client, cfg.Audit.LambdaFunction)
	}

	var deadline time.Time
	if timeBudget > 0 {
		deadline = time.Now().Add(timeBudget)
	}

	engine, err := audit.NewEngine(audit.Params{
		Lister:        audit.NewS3Lister(mgr.GetS3(), cfg.Catalog.Bucket, cfg.Catalog.PathPrefix),
		Checker:       catalog.NewChecker(osClient, cfg.Catalog.Index),
		Sink:          sink,
		Retrigger:     retrigger,
		IDPrefix:      cfg.Catalog.IDPrefix,
		Deadline:      deadline,
		LowWater:      cfg.Audit.LowWater,
		ProgressEvery: cfg.Audit.ProgressInterval,
	})
	if err != nil {
		return err
	}

	rep, err := engine.Run(doneCtx, resumeFromKey)
	if err != nil {
		return err
	}

	objectsAudited.Add(doneCtx, int64(rep.Processed))
	keysMissing.Add(doneCtx, int64(len(rep.Missing)))
	return nil
}
