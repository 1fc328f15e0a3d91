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
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Manager owns the base AWS configuration for one invocation and hands out
// service clients built from it. Clients are created once per invocation
// and reused for every call within it.
type Manager struct {
	baseCfg     aws.Config
	stsClient   *sts.Client
	sessionName string

	sync.RWMutex
	providers map[roleKey]aws.CredentialsProvider
	tracer    trace.Tracer
}

// ManagerOption is a functional option for configuring the Manager.
type ManagerOption func(*Manager)

func WithAssumeRoleSessionName(name string) ManagerOption {
	return func(mgr *Manager) {
		mgr.sessionName = name
	}
}

// WithStaticCredentials overrides the ambient credential chain with the
// access key, secret, and optional session token sourced from the
// deployment contract's environment variables.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) ManagerOption {
	return func(mgr *Manager) {
		mgr.baseCfg.Credentials = credentials.NewStaticCredentialsProvider(
			accessKeyID, secretAccessKey, sessionToken)
	}
}

// NewManager initializes AWS config + a single STS client.
func NewManager(ctx context.Context, opts ...ManagerOption) (*Manager, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	otelaws.AppendMiddlewares(&cfg.APIOptions)

	tracer := otel.Tracer("github.com/cdms-data/parquet-audit/internal/awsclient")
	mgr := &Manager{
		baseCfg:     cfg,
		sessionName: "parquet-audit",
		providers:   make(map[roleKey]aws.CredentialsProvider),
		tracer:      tracer,
	}
	for _, opt := range opts {
		opt(mgr)
	}
	mgr.stsClient = sts.NewFromConfig(mgr.baseCfg)

	return mgr, nil
}

// BaseConfig returns a copy of the manager's resolved AWS configuration for
// callers that sign non-SDK requests (eg. the OpenSearch client).
func (m *Manager) BaseConfig() aws.Config {
	return m.baseCfg.Copy()
}

type roleKey struct {
	Region  string
	RoleARN string
}

// providerFor returns a cached credentials provider for the given region and
// role, assuming the role through STS when one is set.
func (m *Manager) providerFor(key roleKey) aws.CredentialsProvider {
	m.RLock()
	provider, ok := m.providers[key]
	m.RUnlock()
	if ok {
		return provider
	}

	m.Lock()
	defer m.Unlock()
	if provider, ok = m.providers[key]; ok {
		return provider
	}
	if key.RoleARN == "" {
		provider = m.baseCfg.Credentials
	} else {
		p := newAssumeRoleProvider(m.stsClient, key.RoleARN, m.sessionName)
		provider = aws.NewCredentialsCache(p)
	}
	m.providers[key] = provider
	return provider
}

func newAssumeRoleProvider(client *sts.Client, roleARN, sessionName string) aws.CredentialsProvider {
	return stscreds.NewAssumeRoleProvider(client, roleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = sessionName
	})
}

func (m *Manager) configFor(key roleKey) aws.Config {
	cfg := m.baseCfg.Copy()
	if key.Region != "" {
		cfg.Region = key.Region
	}
	cfg.Credentials = m.providerFor(key)
	return cfg
}
