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
	"log/slog"
	"os"

	"github.com/google/uuid"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("github.com/cdms-data/parquet-audit")

	objectsAudited metric.Int64Counter
	keysMissing    metric.Int64Counter
	eventsIngested metric.Int64Counter
)

func init() {
	var err error
	objectsAudited, err = meter.Int64Counter(
		"parquet_audit.audit.objects",
		metric.WithDescription("Number of S3 objects checked against the catalog"),
	)
	if err != nil {
		panic(err)
	}
	keysMissing, err = meter.Int64Counter(
		"parquet_audit.audit.missing",
		metric.WithDescription("Number of S3 keys with no valid catalog record"),
	)
	if err != nil {
		panic(err)
	}
	eventsIngested, err = meter.Int64Counter(
		"parquet_audit.index.events",
		metric.WithDescription("Number of S3 lifecycle events processed by the indexer"),
	)
	if err != nil {
		panic(err)
	}
}

// setupLogging configures the process-wide slog default and returns a context
// cancelled on SIGINT/SIGTERM. Every run gets a unique run_id attribute so
// chained re-invocations of the same scan can be stitched together in logs.
func setupLogging(servicename string) (context.Context, context.CancelFunc) {
	doneCtx, doneCancel := handleSignals(context.Background())

	var opts *slog.HandlerOptions
	if os.Getenv("DEBUG") != "" || os.Getenv("PARQUET_AUDIT_DEBUG") != "" {
		opts = &slog.HandlerOptions{Level: slog.LevelDebug}
	}

	runID := uuid.New().String()

	if os.Getenv("OTEL_SERVICE_NAME") != "" && os.Getenv("ENABLE_OTLP_TELEMETRY") == "true" {
		slog.SetDefault(slog.New(slogmulti.Fanout(
			slog.NewTextHandler(os.Stdout, opts),
			otelslog.NewHandler(servicename),
		)).With(
			slog.String("service", servicename),
			slog.String("run_id", runID),
		))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, opts)).With(
			slog.String("service", servicename),
			slog.String("run_id", runID),
		))
	}

	return doneCtx, doneCancel
}
