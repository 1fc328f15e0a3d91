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

// Package stats extracts per-file observation statistics from in-situ
// parquet files, either by parsing the file locally or by delegating to the
// remote extraction service.
package stats

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/parquet-go/parquet-go"

	"github.com/cdms-data/parquet-audit/internal/awsclient"
	"github.com/cdms-data/parquet-audit/internal/logctx"
)

// Document holds the statistics indexed for one parquet file. Field names
// match the catalog's record schema.
type Document struct {
	Total       int64    `json:"total"`
	MinDatetime *float64 `json:"min_datetime,omitempty"`
	MaxDatetime *float64 `json:"max_datetime,omitempty"`
	MinDepth    *float64 `json:"min_depth,omitempty"`
	MaxDepth    *float64 `json:"max_depth,omitempty"`
	MinLat      *float64 `json:"min_lat,omitempty"`
	MaxLat      *float64 `json:"max_lat,omitempty"`
	MinLon      *float64 `json:"min_lon,omitempty"`
	MaxLon      *float64 `json:"max_lon,omitempty"`
}

// Extractor produces the statistics document for one stored object.
type Extractor interface {
	Extract(ctx context.Context, bucket, key string) (*Document, error)
}

// statColumns maps parquet column names to the document fields they feed.
var statColumns = map[string]struct{ min, max func(*Document) **float64 }{
	"time": {
		min: func(d *Document) **float64 { return &d.MinDatetime },
		max: func(d *Document) **float64 { return &d.MaxDatetime },
	},
	"depth": {
		min: func(d *Document) **float64 { return &d.MinDepth },
		max: func(d *Document) **float64 { return &d.MaxDepth },
	},
	"latitude": {
		min: func(d *Document) **float64 { return &d.MinLat },
		max: func(d *Document) **float64 { return &d.MaxLat },
	},
	"longitude": {
		min: func(d *Document) **float64 { return &d.MinLon },
		max: func(d *Document) **float64 { return &d.MaxLon },
	},
}

// LocalExtractor downloads the object and parses it with parquet-go.
type LocalExtractor struct {
	s3client *awsclient.S3Client
	tmpdir   string
}

func NewLocalExtractor(s3client *awsclient.S3Client, tmpdir string) *LocalExtractor {
	if tmpdir == "" {
		tmpdir = os.TempDir()
	}
	return &LocalExtractor{s3client: s3client, tmpdir: tmpdir}
}

func (e *LocalExtractor) Extract(ctx context.Context, bucket, key string) (*Document, error) {
	log := logctx.FromContext(ctx)
	log.Debug("Downloading parquet file locally to extract stats",
		slog.String("bucket", bucket), slog.String("key", key))

	filename, err := e.download(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(filename); err != nil {
			log.Warn("Failed to remove downloaded parquet file",
				slog.String("path", filename), slog.Any("error", err))
		}
	}()

	return FromFile(filename)
}

func (e *LocalExtractor) download(ctx context.Context, bucket, key string) (string, error) {
	downloader := manager.NewDownloader(e.s3client.Client)

	f, err := os.CreateTemp(e.tmpdir, "*-"+filepath.Base(key))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	_, err = downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	closeErr := f.Close()
	if err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("downloading s3://%s/%s: %w", bucket, key, err)
	}
	if closeErr != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}
	return f.Name(), nil
}

// FromFile parses a local parquet file and computes the statistics
// document. Columns absent from the file are simply left unset.
func FromFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening parquet file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stating parquet file %s: %w", path, err)
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("opening parquet file %s: %w", path, err)
	}

	doc := &Document{Total: pf.NumRows()}

	reader := parquet.NewGenericReader[map[string]any](pf, pf.Schema())
	defer func() { _ = reader.Close() }()

	rows := make([]map[string]any, 1000)
	for {
		for i := range rows {
			rows[i] = make(map[string]any)
		}
		n, err := reader.Read(rows)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading parquet rows from %s: %w", path, err)
		}
		for i := 0; i < n; i++ {
			observe(doc, rows[i])
		}
		if n == 0 || err == io.EOF {
			break
		}
	}

	return doc, nil
}

func observe(doc *Document, row map[string]any) {
	for col, dst := range statColumns {
		raw, ok := row[col]
		if !ok {
			continue
		}
		v, ok := asFloat(raw)
		if !ok {
			continue
		}
		minp := dst.min(doc)
		maxp := dst.max(doc)
		if *minp == nil || v < **minp {
			val := v
			*minp = &val
		}
		if *maxp == nil || v > **maxp {
			val := v
			*maxp = &val
		}
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
