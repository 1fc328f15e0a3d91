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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdms-data/parquet-audit/internal/catalog"
)

// fakeLister mirrors the Lister contract: inclusive restart at the resume
// key when it is present, fallback to the beginning when it is not.
type fakeLister struct {
	objects []ObjectIdentity
	calls   int
}

func (l *fakeLister) List(_ context.Context, resumeFromKey string, fn func(ObjectIdentity) (bool, error)) error {
	l.calls++
	start := 0
	if resumeFromKey != "" {
		for i, o := range l.objects {
			if o.Key == resumeFromKey {
				start = i
				break
			}
		}
	}
	for _, o := range l.objects[start:] {
		cont, err := fn(o)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// fakeChecker answers from a fixed map; keys not present are Found.
type fakeChecker struct {
	results map[string]catalog.CheckResult
	checked []string
}

func (c *fakeChecker) Check(_ context.Context, documentID string) catalog.CheckResult {
	c.checked = append(c.checked, documentID)
	if res, ok := c.results[documentID]; ok {
		return res
	}
	return catalog.CheckResult{Status: catalog.StatusFound}
}

type fakeSink struct {
	writes [][]string
}

func (s *fakeSink) Write(_ context.Context, missing []string) error {
	s.writes = append(s.writes, append([]string(nil), missing...))
	return nil
}

type fakeRetrigger struct {
	cursors []ResumeCursor
}

func (r *fakeRetrigger) Reinvoke(_ context.Context, cursor ResumeCursor) error {
	r.cursors = append(r.cursors, cursor)
	return nil
}

func identities(keys ...string) []ObjectIdentity {
	out := make([]ObjectIdentity, 0, len(keys))
	for _, k := range keys {
		out = append(out, ObjectIdentity{Bucket: "bkt", Key: k})
	}
	return out
}

func newTestEngine(t *testing.T, p Params) *Engine {
	t.Helper()
	e, err := NewEngine(p)
	require.NoError(t, err)
	return e
}

func TestEngine_MissingKeysInListingOrder(t *testing.T) {
	lister := &fakeLister{objects: identities("a", "b", "c", "d")}
	checker := &fakeChecker{results: map[string]catalog.CheckResult{
		"s3://bkt/a": {Status: catalog.StatusNotFound},
		"s3://bkt/c": {Status: catalog.StatusNotFound},
		"s3://bkt/d": {Status: catalog.StatusNotFound},
	}}
	sink := &fakeSink{}

	e := newTestEngine(t, Params{Lister: lister, Checker: checker, Sink: sink, IDPrefix: "s3://bkt/"})
	rep, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 4, rep.Processed)
	assert.Equal(t, []string{"a", "c", "d"}, rep.Missing)
	assert.Zero(t, rep.Errors)
	assert.False(t, rep.Suspended)
	assert.Equal(t, StateCompleted, e.State())

	require.Len(t, sink.writes, 1)
	assert.Equal(t, []string{"a", "c", "d"}, sink.writes[0])
}

func TestEngine_LookupErrorCountedOnce(t *testing.T) {
	lister := &fakeLister{objects: identities("a", "b", "c")}
	checker := &fakeChecker{results: map[string]catalog.CheckResult{
		"s3://bkt/b": {Status: catalog.StatusError, Cause: errors.New("index unavailable")},
	}}
	sink := &fakeSink{}

	e := newTestEngine(t, Params{Lister: lister, Checker: checker, Sink: sink, IDPrefix: "s3://bkt/"})
	rep, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	// An error and a genuine miss are equally actionable; either way the
	// key shows up exactly once.
	assert.Equal(t, []string{"b"}, rep.Missing)
	assert.Equal(t, 1, rep.Errors)
	assert.Equal(t, 3, rep.Processed)
}

func TestEngine_RerunIsDeterministic(t *testing.T) {
	results := map[string]catalog.CheckResult{
		"pfx/b": {Status: catalog.StatusNotFound},
		"pfx/d": {Status: catalog.StatusError, Cause: errors.New("boom")},
	}

	run := func() []string {
		lister := &fakeLister{objects: identities("a", "b", "c", "d")}
		e := newTestEngine(t, Params{
			Lister:   lister,
			Checker:  &fakeChecker{results: results},
			Sink:     &fakeSink{},
			IDPrefix: "pfx/",
		})
		rep, err := e.Run(context.Background(), "")
		require.NoError(t, err)
		return rep.Missing
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"b", "d"}, first)
}

func TestEngine_ResumeStartsAtCursorInclusive(t *testing.T) {
	lister := &fakeLister{objects: identities("a", "b", "c", "d")}
	checker := &fakeChecker{}
	e := newTestEngine(t, Params{Lister: lister, Checker: checker, Sink: &fakeSink{}, IDPrefix: "p/"})

	rep, err := e.Run(context.Background(), "c")
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Processed)
	assert.Equal(t, []string{"p/c", "p/d"}, checker.checked)
}

func TestEngine_ResumeFallsBackToBeginning(t *testing.T) {
	lister := &fakeLister{objects: identities("a", "b", "c")}
	checker := &fakeChecker{}
	e := newTestEngine(t, Params{Lister: lister, Checker: checker, Sink: &fakeSink{}, IDPrefix: "p/"})

	rep, err := e.Run(context.Background(), "deleted-key")
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Processed)
	assert.Equal(t, []string{"p/a", "p/b", "p/c"}, checker.checked)
}

func TestEngine_SuspendsWhenBudgetExhausted(t *testing.T) {
	lister := &fakeLister{objects: identities("a", "b", "c", "d")}
	checker := &fakeChecker{results: map[string]catalog.CheckResult{
		"p/a": {Status: catalog.StatusNotFound},
	}}
	sink := &fakeSink{}
	retrigger := &fakeRetrigger{}

	// The deadline is already inside the low-water mark, so the very first
	// item suspends the scan before being processed.
	e := newTestEngine(t, Params{
		Lister:    lister,
		Checker:   checker,
		Sink:      sink,
		Retrigger: retrigger,
		IDPrefix:  "p/",
		Deadline:  time.Now().Add(30 * time.Second),
		LowWater:  time.Minute,
	})

	rep, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	assert.True(t, rep.Suspended)
	assert.Equal(t, "a", rep.Cursor.LastSeenKey)
	assert.Zero(t, rep.Processed)
	assert.Equal(t, StateSuspended, e.State())

	// Partial results are still delivered, and the retrigger fires exactly
	// once with the cursor.
	require.Len(t, sink.writes, 1)
	assert.Empty(t, sink.writes[0])
	require.Len(t, retrigger.cursors, 1)
	assert.Equal(t, "a", retrigger.cursors[0].LastSeenKey)
}

func TestEngine_GenerousBudgetDoesNotSuspend(t *testing.T) {
	lister := &fakeLister{objects: identities("a", "b")}
	retrigger := &fakeRetrigger{}
	e := newTestEngine(t, Params{
		Lister:    lister,
		Checker:   &fakeChecker{},
		Sink:      &fakeSink{},
		Retrigger: retrigger,
		Deadline:  time.Now().Add(time.Hour),
	})

	rep, err := e.Run(context.Background(), "")
	require.NoError(t, err)

	assert.False(t, rep.Suspended)
	assert.Equal(t, 2, rep.Processed)
	assert.Empty(t, retrigger.cursors)
}

func TestEngine_ListerErrorAbortsRun(t *testing.T) {
	e := newTestEngine(t, Params{
		Lister: listerFunc(func(context.Context, string, func(ObjectIdentity) (bool, error)) error {
			return errors.New("listing failed")
		}),
		Checker: &fakeChecker{},
		Sink:    &fakeSink{},
	})

	_, err := e.Run(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing failed")
}

type listerFunc func(ctx context.Context, resumeFromKey string, fn func(ObjectIdentity) (bool, error)) error

func (f listerFunc) List(ctx context.Context, resumeFromKey string, fn func(ObjectIdentity) (bool, error)) error {
	return f(ctx, resumeFromKey, fn)
}

func TestNewEngine_RequiresCollaborators(t *testing.T) {
	_, err := NewEngine(Params{Checker: &fakeChecker{}, Sink: &fakeSink{}})
	require.Error(t, err)

	_, err = NewEngine(Params{Lister: &fakeLister{}, Sink: &fakeSink{}})
	require.Error(t, err)

	_, err = NewEngine(Params{Lister: &fakeLister{}, Checker: &fakeChecker{}})
	require.Error(t, err)
}
