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

package debug

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cdms-data/parquet-audit/internal/audit"
	"github.com/cdms-data/parquet-audit/internal/awsclient"
)

func GetS3LSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "s3ls",
		Short: "List a bucket prefix in S3",
		RunE: func(c *cobra.Command, _ []string) error {
			bucket, err := c.Flags().GetString("bucket")
			if err != nil {
				return fmt.Errorf("failed to get bucket flag: %w", err)
			}
			prefix, err := c.Flags().GetString("prefix")
			if err != nil {
				return fmt.Errorf("failed to get prefix flag: %w", err)
			}
			region, err := c.Flags().GetString("region")
			if err != nil {
				return fmt.Errorf("failed to get region flag: %w", err)
			}
			role, err := c.Flags().GetString("role")
			if err != nil {
				return fmt.Errorf("failed to get role flag: %w", err)
			}

			return runS3LS(bucket, prefix, region, role)
		},
	}

	cmd.Flags().String("bucket", "", "S3 bucket to list")
	if err := cmd.MarkFlagRequired("bucket"); err != nil {
		panic(fmt.Errorf("failed to mark bucket flag as required: %w", err))
	}

	cmd.Flags().String("prefix", "", "S3 prefix to list")
	cmd.Flags().String("region", "", "AWS region of the S3 bucket")
	cmd.Flags().String("role", "", "AWS IAM role to assume for S3 access")

	return cmd
}

func runS3LS(bucket, prefix, region, role string) error {
	ctx := context.Background()

	mgr, err := awsclient.NewManager(ctx)
	if err != nil {
		return err
	}

	var opts []awsclient.S3Option
	if role != "" {
		opts = append(opts, awsclient.WithRole(role))
	}
	if region != "" {
		opts = append(opts, awsclient.WithRegion(region))
	}

	lister := audit.NewS3Lister(mgr.GetS3(opts...), bucket, prefix)
	return lister.List(ctx, "", func(obj audit.ObjectIdentity) (bool, error) {
		fmt.Println(obj.Key)
		return true, nil
	})
}
