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
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/cdms-data/parquet-audit/internal/logctx"
)

// Retrigger asks the host to run the scan again with a resume cursor. The
// call is fire-and-forget: the next invocation is not awaited, and there is
// no guarantee it won't start before the current one has fully torn down.
type Retrigger interface {
	Reinvoke(ctx context.Context, cursor ResumeCursor) error
}

type lambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaRetrigger re-invokes the current Lambda function asynchronously
// with the cursor as the next invocation's payload.
type LambdaRetrigger struct {
	client       lambdaInvoker
	functionName string
}

func NewLambdaRetrigger(client lambdaInvoker, functionName string) *LambdaRetrigger {
	return &LambdaRetrigger{client: client, functionName: functionName}
}

func (r *LambdaRetrigger) Reinvoke(ctx context.Context, cursor ResumeCursor) error {
	payload, err := json.Marshal(cursor)
	if err != nil {
		return fmt.Errorf("marshaling resume cursor: %w", err)
	}

	out, err := r.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(r.functionName),
		InvocationType: types.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		return fmt.Errorf("re-invoking %s: %w", r.functionName, err)
	}

	logctx.FromContext(ctx).Info("Requested scan re-invocation",
		slog.String("function", r.functionName),
		slog.String("resumeFromKey", cursor.LastSeenKey),
		slog.Int("statusCode", int(out.StatusCode)))
	return nil
}

// NopRetrigger is used outside bounded-time hosts: the suspension is logged
// and the operator reruns the scan with the cursor by hand.
type NopRetrigger struct{}

func (NopRetrigger) Reinvoke(ctx context.Context, cursor ResumeCursor) error {
	logctx.FromContext(ctx).Warn("No re-invocation trigger configured, rerun manually",
		slog.String("resumeFromKey", cursor.LastSeenKey))
	return nil
}
