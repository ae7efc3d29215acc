// Copyright 2026 the Jidhr authors
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

package syncjob

import (
	"context"
	"fmt"
	"strings"

	"jidhr/internal/backend/csuite"
	"jidhr/internal/backend/hubspot"
	"jidhr/pkg/log"
	"jidhr/pkg/metrics"
)

// AccountingReader is the accounting surface the sync jobs consume.
type AccountingReader interface {
	AllProfiles(ctx context.Context) ([]csuite.Profile, error)
	AllDonations(ctx context.Context) ([]csuite.Donation, error)
	ListEventDates(ctx context.Context, limit int) ([]csuite.EventDate, error)
}

// CRMWriter is the CRM surface the sync jobs write to.
type CRMWriter interface {
	UpdateContactByEmail(ctx context.Context, email string, properties map[string]string) error
	MarketingEventByExternalID(ctx context.Context, externalEventID string) (*hubspot.MarketingEvent, error)
	CreateMarketingEvent(ctx context.Context, event hubspot.NewMarketingEvent) (*hubspot.MarketingEvent, error)
	SubscribeContact(ctx context.Context, email string) error
}

// Result carries the counters of one sync run.
type Result struct {
	Job     string
	DryRun  bool
	Matched int // records that would be written
	Updated int // records written
	Skipped int
	Failed  int
}

// Summary renders the result as one line for the chat reply.
func (r Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sync %s:", r.Job)
	if r.DryRun {
		b.WriteString(" (dry run)")
	}
	fmt.Fprintf(&b, " %d matched, %d updated, %d skipped", r.Matched, r.Updated, r.Skipped)
	if r.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", r.Failed)
	}
	return b.String()
}

// Runner executes the sync jobs against the two backends.
type Runner struct {
	accounting AccountingReader
	crm        CRMWriter
	logger     *log.Logger
}

// NewRunner creates a sync runner.
func NewRunner(accounting AccountingReader, crm CRMWriter, logger *log.Logger) *Runner {
	return &Runner{accounting: accounting, crm: crm, logger: logger}
}

// Run executes one named job ("donations", "events", "newsletter", or
// "all") and returns a human-readable summary.
func (r *Runner) Run(ctx context.Context, job string, dryRun bool) (string, error) {
	var results []Result
	var firstErr error

	runOne := func(name string, fn func(context.Context, bool) (Result, error)) {
		result, err := fn(ctx, dryRun)
		if err != nil {
			metrics.SyncRunTotal.WithLabelValues(name, "error").Inc()
			if firstErr == nil {
				firstErr = fmt.Errorf("sync %s: %w", name, err)
			}
			return
		}
		metrics.SyncRunTotal.WithLabelValues(name, "ok").Inc()
		results = append(results, result)
	}

	switch job {
	case "donations":
		runOne("donations", r.SyncDonations)
	case "events":
		runOne("events", r.SyncEvents)
	case "newsletter":
		runOne("newsletter", r.SyncNewsletter)
	case "all":
		runOne("donations", r.SyncDonations)
		runOne("events", r.SyncEvents)
		runOne("newsletter", r.SyncNewsletter)
	default:
		return "", fmt.Errorf("unknown sync job: %s", job)
	}

	if firstErr != nil && len(results) == 0 {
		return "", firstErr
	}
	lines := make([]string, 0, len(results)+1)
	for _, result := range results {
		lines = append(lines, result.Summary())
	}
	if firstErr != nil {
		lines = append(lines, firstErr.Error())
	}
	return strings.Join(lines, "\n"), nil
}
