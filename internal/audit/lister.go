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
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/cdms-data/parquet-audit/internal/awsclient"
	"github.com/cdms-data/parquet-audit/internal/logctx"
)

// Lister produces the ordered object sequence for one bucket+prefix scope.
// Implementations stream: fn is called once per object in key order, and a
// false return stops the listing without error. A fresh listing for the
// same prefix is idempotent and re-listable.
type Lister interface {
	List(ctx context.Context, resumeFromKey string, fn func(ObjectIdentity) (bool, error)) error
}

// S3API is the slice of the S3 client the lister needs.
type S3API interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Lister streams a ListObjectsV2 pagination, one page at a time, without
// ever materializing the full listing. Resuming uses the store's native
// seek: the resume key is probed with HeadObject and, when still present,
// emitted first with the remainder fetched via StartAfter. A resume key
// that no longer exists falls back to the beginning of the listing.
type S3Lister struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Lister(client *awsclient.S3Client, bucket, prefix string) *S3Lister {
	return &S3Lister{client: client.Client, bucket: bucket, prefix: prefix}
}

func (l *S3Lister) List(ctx context.Context, resumeFromKey string, fn func(ObjectIdentity) (bool, error)) error {
	log := logctx.FromContext(ctx)

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(l.bucket),
		Prefix: aws.String(l.prefix),
	}

	if resumeFromKey != "" {
		head, err := l.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(resumeFromKey),
		})
		switch {
		case err == nil:
			log.Info("Resuming audit from key", slog.String("resumeFromKey", resumeFromKey))
			cont, err := fn(ObjectIdentity{
				Bucket:       l.bucket,
				Key:          resumeFromKey,
				Size:         aws.ToInt64(head.ContentLength),
				LastModified: aws.ToTime(head.LastModified),
			})
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
			input.StartAfter = aws.String(resumeFromKey)
		case isObjectNotFound(err):
			log.Info("Resume key no longer exists, starting audit from the beginning",
				slog.String("resumeFromKey", resumeFromKey))
		default:
			return fmt.Errorf("probing resume key %s: %w", resumeFromKey, err)
		}
	} else {
		log.Info("Starting audit from the beginning")
	}

	return l.walk(ctx, input, fn)
}

// isObjectNotFound classifies a HeadObject failure as "the key is gone".
// HeadObject 404s carry no body, so depending on the endpoint they surface
// as the modeled NotFound type, a generic API error, or a bare HTTP 404.
func isObjectNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	var httpErr *smithyhttp.ResponseError
	return errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == http.StatusNotFound
}

func (l *S3Lister) walk(ctx context.Context, input *s3.ListObjectsV2Input, fn func(ObjectIdentity) (bool, error)) error {
	log := logctx.FromContext(ctx)

	paginator := s3.NewListObjectsV2Paginator(l.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			log.Error("Failed to list S3 objects",
				slog.String("bucket", l.bucket),
				slog.String("prefix", l.prefix),
				slog.Any("error", err),
			)
			return fmt.Errorf("listing s3://%s/%s: %w", l.bucket, l.prefix, err)
		}
		log.Debug("Listed page of objects", slog.Int("count", len(page.Contents)))

		for _, obj := range page.Contents {
			cont, err := fn(ObjectIdentity{
				Bucket:       l.bucket,
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
	}

	return nil
}
