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

package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type obsRow struct {
	Time      float64 `parquet:"time"`
	Depth     float64 `parquet:"depth"`
	Latitude  float64 `parquet:"latitude"`
	Longitude float64 `parquet:"longitude"`
}

func writeParquet[T any](t *testing.T, rows []T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "obs.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := parquet.NewGenericWriter[T](f)
	_, err = w.Write(rows)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestFromFile_ComputesMinMaxPerColumn(t *testing.T) {
	path := writeParquet(t, []obsRow{
		{Time: 1600000000, Depth: 5.5, Latitude: -33.9, Longitude: 151.2},
		{Time: 1600003600, Depth: 0.5, Latitude: -34.1, Longitude: 150.8},
		{Time: 1600001800, Depth: 12.0, Latitude: -33.5, Longitude: 151.5},
	})

	doc, err := FromFile(path)
	require.NoError(t, err)

	assert.EqualValues(t, 3, doc.Total)
	require.NotNil(t, doc.MinDatetime)
	assert.Equal(t, 1600000000.0, *doc.MinDatetime)
	assert.Equal(t, 1600003600.0, *doc.MaxDatetime)
	assert.Equal(t, 0.5, *doc.MinDepth)
	assert.Equal(t, 12.0, *doc.MaxDepth)
	assert.Equal(t, -34.1, *doc.MinLat)
	assert.Equal(t, -33.5, *doc.MaxLat)
	assert.Equal(t, 150.8, *doc.MinLon)
	assert.Equal(t, 151.5, *doc.MaxLon)
}

func TestFromFile_SingleRow(t *testing.T) {
	path := writeParquet(t, []obsRow{
		{Time: 42, Depth: 1, Latitude: 2, Longitude: 3},
	})

	doc, err := FromFile(path)
	require.NoError(t, err)

	assert.EqualValues(t, 1, doc.Total)
	assert.Equal(t, *doc.MinDatetime, *doc.MaxDatetime)
	assert.Equal(t, 42.0, *doc.MinDatetime)
}

func TestFromFile_MissingStatColumns(t *testing.T) {
	type plainRow struct {
		Station string `parquet:"station"`
		Count   int64  `parquet:"count"`
	}
	path := writeParquet(t, []plainRow{
		{Station: "A", Count: 1},
		{Station: "B", Count: 2},
	})

	doc, err := FromFile(path)
	require.NoError(t, err)

	assert.EqualValues(t, 2, doc.Total)
	assert.Nil(t, doc.MinDatetime)
	assert.Nil(t, doc.MaxDatetime)
	assert.Nil(t, doc.MinDepth)
	assert.Nil(t, doc.MinLat)
	assert.Nil(t, doc.MinLon)
}

func TestFromFile_IntegerColumnsCoerce(t *testing.T) {
	type intRow struct {
		Time  int64 `parquet:"time"`
		Depth int32 `parquet:"depth"`
	}
	path := writeParquet(t, []intRow{
		{Time: 100, Depth: 7},
		{Time: 200, Depth: 3},
	})

	doc, err := FromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 100.0, *doc.MinDatetime)
	assert.Equal(t, 200.0, *doc.MaxDatetime)
	assert.Equal(t, 3.0, *doc.MinDepth)
	assert.Equal(t, 7.0, *doc.MaxDepth)
}

func TestFromFile_NotAParquetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.parquet")
	require.NoError(t, os.WriteFile(path, []byte("this is not parquet"), 0o644))

	_, err := FromFile(path)
	require.Error(t, err)
}

func TestFromFile_MissingFile(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "nope.parquet"))
	require.Error(t, err)
}
