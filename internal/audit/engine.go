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
	"time"

	"github.com/cdms-data/parquet-audit/internal/catalog"
	"github.com/cdms-data/parquet-audit/internal/logctx"
)

// Checker is the catalog existence lookup the engine consults per object.
type Checker interface {
	Check(ctx context.Context, documentID string) catalog.CheckResult
}

// Report summarizes one engine run. Missing holds the keys with no valid
// catalog record, in listing order; Errors counts how many of those were
// lookup failures rather than explicit not-found answers.
type Report struct {
	Processed int
	Missing   []string
	Errors    int
	Suspended bool
	Cursor    ResumeCursor
}

// Params configures an Engine. Lister, Checker, and Sink are required.
type Params struct {
	Lister    Lister
	Checker   Checker
	Sink      Sink
	Retrigger Retrigger

	// IDPrefix is prepended to each object key to form the catalog
	// document id.
	IDPrefix string

	// Deadline is the host's execution deadline; zero means unbounded.
	Deadline time.Time
	// LowWater is the remaining budget below which the scan suspends
	// rather than start another item. Defaults to one minute.
	LowWater time.Duration
	// ProgressEvery controls progress logging cadence. Defaults to 50.
	ProgressEvery int
}

// Engine walks the listing and checks every object against the catalog.
// Single-threaded and strictly sequential: catalog lookups happen in
// listing order, so for a fixed listing and catalog state the missing-key
// sequence is deterministic. The only suspension point is the per-item
// budget check; an in-flight lookup always completes or fails first.
type Engine struct {
	lister        Lister
	checker       Checker
	sink          Sink
	retrigger     Retrigger
	idPrefix      string
	deadline      time.Time
	lowWater      time.Duration
	progressEvery int

	state State
}

func NewEngine(p Params) (*Engine, error) {
	if p.Lister == nil {
		return nil, errors.New("audit engine requires a lister")
	}
	if p.Checker == nil {
		return nil, errors.New("audit engine requires a checker")
	}
	if p.Sink == nil {
		return nil, errors.New("audit engine requires a sink")
	}
	if p.Retrigger == nil {
		p.Retrigger = NopRetrigger{}
	}
	if p.LowWater <= 0 {
		p.LowWater = time.Minute
	}
	if p.ProgressEvery <= 0 {
		p.ProgressEvery = 50
	}
	return &Engine{
		lister:        p.Lister,
		checker:       p.Checker,
		sink:          p.Sink,
		retrigger:     p.Retrigger,
		idPrefix:      p.IDPrefix,
		deadline:      p.Deadline,
		lowWater:      p.LowWater,
		progressEvery: p.ProgressEvery,
		state:         StateListing,
	}, nil
}

// State reports the engine's current lifecycle position.
func (e *Engine) State() State {
	return e.state
}

func (e *Engine) budgetExhausted() bool {
	if e.deadline.IsZero() {
		return false
	}
	return time.Until(e.deadline) < e.lowWater
}

// Run executes one scan pass, resuming from resumeFromKey when non-empty.
// Whatever was accumulated is always flushed to the sink, including the
// partial results of a suspended pass. On suspension the re-invocation
// trigger fires after the flush; trigger failures are logged, not returned,
// since the trigger is fire-and-forget.
func (e *Engine) Run(ctx context.Context, resumeFromKey string) (*Report, error) {
	log := logctx.FromContext(ctx)

	rep := &Report{}
	e.state = StateListing

	err := e.lister.List(ctx, resumeFromKey, func(obj ObjectIdentity) (bool, error) {
		e.state = StateAuditing

		// Budget check happens before the item so a suspended item is
		// re-attempted by the next invocation.
		if e.budgetExhausted() {
			rep.Suspended = true
			rep.Cursor = ResumeCursor{LastSeenKey: obj.Key}
			log.Warn("Execution budget nearly exhausted, suspending scan",
				slog.String("resumeFromKey", obj.Key),
				slog.Int("processed", rep.Processed))
			return false, nil
		}

		rep.Processed++
		res := e.checker.Check(ctx, catalog.DocumentID(e.idPrefix, obj.Key))
		switch res.Status {
		case catalog.StatusFound:
			// Catalog record present, nothing to do.
		case catalog.StatusNotFound:
			rep.Missing = append(rep.Missing, obj.Key)
			log.Info("Missing catalog record", slog.String("key", obj.Key))
		case catalog.StatusError:
			// Counted and kept: a key whose record cannot be read has no
			// valid catalog record right now, same as a genuine miss.
			rep.Errors++
			rep.Missing = append(rep.Missing, obj.Key)
			log.Warn("Catalog lookup failed",
				slog.String("key", obj.Key),
				slog.Any("error", res.Cause))
		}

		if rep.Processed%e.progressEvery == 0 {
			log.Info("Progress", slog.Int("processed", rep.Processed),
				slog.Int("missing", len(rep.Missing)))
		}
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning listing: %w", err)
	}

	log.Info("Processed files", slog.Int("processed", rep.Processed))
	log.Info("Found missing keys", slog.Int("missing", len(rep.Missing)),
		slog.Int("lookupErrors", rep.Errors))

	if err := e.sink.Write(ctx, rep.Missing); err != nil {
		return nil, fmt.Errorf("writing missing keys: %w", err)
	}

	if rep.Suspended {
		e.state = StateSuspended
		if err := e.retrigger.Reinvoke(ctx, rep.Cursor); err != nil {
			log.Error("Failed to request scan re-invocation",
				slog.String("resumeFromKey", rep.Cursor.LastSeenKey),
				slog.Any("error", err))
		}
		return rep, nil
	}

	e.state = StateCompleted
	return rep, nil
}
