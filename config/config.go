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

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cdms-data/parquet-audit/internal/catalog"
)

// Config aggregates configuration for the application. The catalog and AWS
// sections are bound to the environment variable names the deployment
// contract mandates; service knobs use the PARQUET_AUDIT prefix.
type Config struct {
	AWS     AWSConfig     `mapstructure:"aws"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Index   IndexConfig   `mapstructure:"index"`
}

type AWSConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	Region          string `mapstructure:"region"`
}

type CatalogConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	Port       int    `mapstructure:"port"`
	Index      string `mapstructure:"index"`
	Bucket     string `mapstructure:"bucket"`
	PathPrefix string `mapstructure:"path_prefix"`
	IDPrefix   string `mapstructure:"id_prefix"`
}

type AuditConfig struct {
	// LowWater is the remaining-budget threshold below which a scan
	// suspends itself instead of starting the next item.
	LowWater         time.Duration `mapstructure:"low_water"`
	ProgressInterval int           `mapstructure:"progress_interval"`
	// LambdaFunction is the function name used for fire-and-forget
	// re-invocation when a scan suspends inside a bounded-time host.
	LambdaFunction string `mapstructure:"lambda_function"`
}

type IndexConfig struct {
	QueueURL     string `mapstructure:"queue_url"`
	ExtractorURL string `mapstructure:"extractor_url"`
}

// contractEnvs maps viper keys to the externally mandated environment
// variable names.
var contractEnvs = map[string]string{
	"aws.access_key_id":     "AWS_ACCESS_KEY_ID",
	"aws.secret_access_key": "AWS_SECRET_ACCESS_KEY",
	"aws.session_token":     "AWS_SESSION_TOKEN",
	"aws.region":            "AWS_REGION",
	"catalog.endpoint":      "OPENSEARCH_ENDPOINT",
	"catalog.port":          "OPENSEARCH_PORT",
	"catalog.index":         "OPENSEARCH_INDEX",
	"catalog.bucket":        "OPENSEARCH_BUCKET",
	"catalog.path_prefix":   "OPENSEARCH_PATH_PREFIX",
	"catalog.id_prefix":     "OPENSEARCH_ID_PREFIX",
	"audit.lambda_function": "AWS_LAMBDA_FUNCTION_NAME",
	"index.queue_url":       "SQS_QUEUE_URL",
}

// Load reads configuration from the environment. Contract variables keep
// their mandated names; everything else uses the PARQUET_AUDIT prefix with
// dots replaced by underscores (eg. "audit.low_water" becomes
// "PARQUET_AUDIT_AUDIT_LOW_WATER").
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PARQUET_AUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range contractEnvs {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	v.SetDefault("catalog.port", 443)
	v.SetDefault("audit.low_water", time.Minute)
	v.SetDefault("audit.progress_interval", 50)
	// Registered so the env-only override is visible to Unmarshal.
	v.SetDefault("index.extractor_url", "")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Catalog.IDPrefix == "" {
		cfg.Catalog.IDPrefix = fmt.Sprintf("s3://%s/", cfg.Catalog.Bucket)
	}
	cfg.Catalog.IDPrefix = catalog.AppendSlash(cfg.Catalog.IDPrefix)

	return cfg, nil
}

// Validate checks the values every scan or indexing run needs before any
// work is attempted. It names every missing variable in one error rather
// than failing them one at a time.
func (c *Config) Validate() error {
	var missing []string

	if c.AWS.AccessKeyID == "" {
		missing = append(missing, "AWS_ACCESS_KEY_ID")
	}
	if c.AWS.SecretAccessKey == "" {
		missing = append(missing, "AWS_SECRET_ACCESS_KEY")
	}
	if c.Catalog.Endpoint == "" {
		missing = append(missing, "OPENSEARCH_ENDPOINT")
	}
	if c.Catalog.Index == "" {
		missing = append(missing, "OPENSEARCH_INDEX")
	}
	if c.Catalog.Bucket == "" {
		missing = append(missing, "OPENSEARCH_BUCKET")
	}
	// An empty prefix is a legitimate "scan the whole bucket", so presence
	// is checked against the environment rather than the value.
	if _, ok := os.LookupEnv("OPENSEARCH_PATH_PREFIX"); !ok {
		missing = append(missing, "OPENSEARCH_PATH_PREFIX")
	}

	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	return nil
}
