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
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLambda struct {
	input *lambda.InvokeInput
	err   error
}

func (f *fakeLambda) Invoke(_ context.Context, params *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &lambda.InvokeOutput{StatusCode: 202}, nil
}

func TestLambdaRetrigger_InvokesAsyncWithCursorPayload(t *testing.T) {
	fl := &fakeLambda{}
	r := NewLambdaRetrigger(fl, "parquet-audit")

	err := r.Reinvoke(context.Background(), ResumeCursor{LastSeenKey: "obs/x.parquet"})
	require.NoError(t, err)

	require.NotNil(t, fl.input)
	assert.Equal(t, "parquet-audit", aws.ToString(fl.input.FunctionName))
	assert.Equal(t, types.InvocationTypeEvent, fl.input.InvocationType)

	var cursor ResumeCursor
	require.NoError(t, json.Unmarshal(fl.input.Payload, &cursor))
	assert.Equal(t, "obs/x.parquet", cursor.LastSeenKey)
}

func TestLambdaRetrigger_CursorFieldName(t *testing.T) {
	fl := &fakeLambda{}
	r := NewLambdaRetrigger(fl, "fn")
	require.NoError(t, r.Reinvoke(context.Background(), ResumeCursor{LastSeenKey: "k"}))

	// The payload field name is the contract with the next invocation.
	assert.JSONEq(t, `{"ResumeFromKey":"k"}`, string(fl.input.Payload))
}

func TestLambdaRetrigger_InvokeError(t *testing.T) {
	r := NewLambdaRetrigger(&fakeLambda{err: errors.New("function not found")}, "fn")
	err := r.Reinvoke(context.Background(), ResumeCursor{LastSeenKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "function not found")
}

func TestNopRetrigger_NeverFails(t *testing.T) {
	assert.NoError(t, NopRetrigger{}.Reinvoke(context.Background(), ResumeCursor{LastSeenKey: "k"}))
}
