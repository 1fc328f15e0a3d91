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

package awsclient

import (
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"go.opentelemetry.io/otel/trace"
)

type LambdaClient struct {
	Client *lambda.Client
	Tracer trace.Tracer
}

type lambdaConfig struct {
	RoleARN string
	Region  string
}

// LambdaOption is a functional option for GetLambda.
type LambdaOption func(*lambdaConfig)

// WithLambdaRole sets the IAM Role ARN to assume (empty = no assume).
func WithLambdaRole(roleARN string) LambdaOption {
	return func(c *lambdaConfig) {
		c.RoleARN = roleARN
	}
}

// WithLambdaRegion overrides the AWS region for this call.
func WithLambdaRegion(region string) LambdaOption {
	return func(c *lambdaConfig) {
		c.Region = region
	}
}

func (m *Manager) GetLambda(opts ...LambdaOption) *LambdaClient {
	lc := lambdaConfig{
		Region: m.baseCfg.Region,
	}
	for _, o := range opts {
		o(&lc)
	}

	cfg := m.configFor(roleKey{Region: lc.Region, RoleARN: lc.RoleARN})
	client := lambda.NewFromConfig(cfg)

	return &LambdaClient{Client: client, Tracer: m.tracer}
}
