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
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.opentelemetry.io/otel/trace"
)

type SNSClient struct {
	Client *sns.Client
	Tracer trace.Tracer
}

type snsConfig struct {
	RoleARN string
	Region  string
}

// SNSOption is a functional option for GetSNS.
type SNSOption func(*snsConfig)

// WithSNSRole sets the IAM Role ARN to assume (empty = no assume).
func WithSNSRole(roleARN string) SNSOption {
	return func(c *snsConfig) {
		c.RoleARN = roleARN
	}
}

// WithSNSRegion overrides the AWS region for this call.
func WithSNSRegion(region string) SNSOption {
	return func(c *snsConfig) {
		c.Region = region
	}
}

func (m *Manager) GetSNS(opts ...SNSOption) *SNSClient {
	sc := snsConfig{
		Region: m.baseCfg.Region,
	}
	for _, o := range opts {
		o(&sc)
	}

	cfg := m.configFor(roleKey{Region: sc.Region, RoleARN: sc.RoleARN})
	client := sns.NewFromConfig(cfg)

	return &SNSClient{Client: client, Tracer: m.tracer}
}
