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

package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"

	"jidhr/internal/backend"
	"jidhr/pkg/errors"
	"jidhr/pkg/log"
	"jidhr/pkg/metrics"
)

// AssemblerConfig bounds the assembled prompt.
type AssemblerConfig struct {
	SystemPrompt   string
	HistoryLimit   int           // max history turns kept in the payload
	FetchLimit     int           // max rows requested per backend call
	FragmentRows   int           // max rows rendered per fragment
	BackendTimeout time.Duration // per-call timeout
}

const (
	defaultHistoryLimit   = 40
	defaultFetchLimit     = 10
	defaultFragmentRows   = 5
	defaultBackendTimeout = 30 * time.Second
)

// Assembler maps a query to backend fetches and merges the results with the
// conversation into a PromptPayload.
type Assembler struct {
	clients map[backend.Source]backend.Client
	config  AssemblerConfig
	logger  *log.Logger
}

// NewAssembler creates an assembler over the given backend clients.
func NewAssembler(clients []backend.Client, config AssemblerConfig, logger *log.Logger) *Assembler {
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = defaultHistoryLimit
	}
	if config.FetchLimit <= 0 {
		config.FetchLimit = defaultFetchLimit
	}
	if config.FragmentRows <= 0 {
		config.FragmentRows = defaultFragmentRows
	}
	if config.BackendTimeout <= 0 {
		config.BackendTimeout = defaultBackendTimeout
	}

	bySource := make(map[backend.Source]backend.Client, len(clients))
	for _, client := range clients {
		bySource[client.Source()] = client
	}
	return &Assembler{clients: bySource, config: config, logger: logger}
}

// Assemble classifies the query, fetches one bounded result set per need
// concurrently, and merges everything into a PromptPayload. A failed fetch
// degrades to an annotated empty fragment; Assemble itself fails only on an
// empty query.
func (a *Assembler) Assemble(ctx context.Context, query string, history []Turn) (PromptPayload, error) {
	if query == "" {
		return PromptPayload{}, fmt.Errorf("query is empty: %w", errors.ErrInvalidArg)
	}

	needs := Classify(query)
	fragments := make([]Fragment, len(needs))

	var wg conc.WaitGroup
	for i, need := range needs {
		i, need := i, need
		wg.Go(func() {
			fragments[i] = a.fetch(ctx, need)
		})
	}
	wg.Wait()

	return PromptPayload{
		System:    a.config.SystemPrompt,
		Fragments: fragments,
		History:   TrimHistory(history, a.config.HistoryLimit),
		Query:     query,
	}, nil
}

// fetch runs one bounded backend call for a need. Results land in a fragment
// slot keyed by need order, so concurrent completion cannot reorder them.
func (a *Assembler) fetch(ctx context.Context, need Need) Fragment {
	fragment := Fragment{Source: need.Source, Kind: need.Kind}

	client, ok := a.clients[need.Source]
	if !ok {
		fragment.Note = string(need.Source) + " data unavailable"
		return fragment
	}

	callCtx, cancel := context.WithTimeout(ctx, a.config.BackendTimeout)
	defer cancel()

	start := time.Now()
	records, err := client.Fetch(callCtx, backend.Query{
		Kind:  need.Kind,
		Term:  need.Term,
		Limit: a.config.FetchLimit,
	})
	metrics.BackendCallDuration.WithLabelValues(string(need.Source), need.Kind).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.BackendFailTotal.WithLabelValues(string(need.Source)).Inc()
		if a.logger != nil {
			a.logger.Warn("backend fetch degraded",
				"source", string(need.Source), "kind", need.Kind, "error", err)
		}
		fragment.Note = string(need.Source) + " data unavailable"
		return fragment
	}

	for _, record := range records {
		if len(fragment.Rows) >= a.config.FragmentRows {
			break
		}
		fragment.Rows = append(fragment.Rows, record.Label)
	}
	return fragment
}
