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
	"errors"
	"fmt"
	"reflect"
	"testing"

	"jidhr/internal/backend"
)

// stubBackend records the queries it receives and serves canned rows.
type stubBackend struct {
	source backend.Source
	rows   map[string][]backend.Record
	err    error
	calls  []backend.Query
}

func (s *stubBackend) Source() backend.Source { return s.source }

func (s *stubBackend) Fetch(ctx context.Context, query backend.Query) ([]backend.Record, error) {
	s.calls = append(s.calls, query)
	if s.err != nil {
		return nil, backend.NewError(s.source, s.err)
	}
	return s.rows[query.Kind], nil
}

func newTestAssembler(accounting, crm *stubBackend) *Assembler {
	return NewAssembler(
		[]backend.Client{accounting, crm},
		AssemblerConfig{SystemPrompt: "You are the AMCF operations assistant."},
		nil,
	)
}

func TestAssembleAccountingOnly(t *testing.T) {
	accounting := &stubBackend{source: backend.SourceAccounting, rows: map[string][]backend.Record{
		"funds": {{ID: "7", Label: "Tanvir Fund (DAF) | balance 15200.00"}},
	}}
	crm := &stubBackend{source: backend.SourceCRM}
	assembler := newTestAssembler(accounting, crm)

	payload, err := assembler.Assemble(context.Background(), "What's the balance in the Tanvir Fund?", nil)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if len(accounting.calls) != 1 {
		t.Fatalf("accounting calls = %d, want 1", len(accounting.calls))
	}
	if accounting.calls[0].Term != "Tanvir Fund" {
		t.Fatalf("term = %q", accounting.calls[0].Term)
	}
	if len(crm.calls) != 0 {
		t.Fatalf("crm calls = %d, want 0", len(crm.calls))
	}
	if len(payload.Fragments) != 1 || payload.Fragments[0].Source != backend.SourceAccounting {
		t.Fatalf("fragments = %+v", payload.Fragments)
	}
}

func TestAssembleNoKeywordsStillCarriesQuery(t *testing.T) {
	accounting := &stubBackend{source: backend.SourceAccounting}
	crm := &stubBackend{source: backend.SourceCRM}
	assembler := newTestAssembler(accounting, crm)

	payload, err := assembler.Assemble(context.Background(), "Good morning!", nil)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if len(accounting.calls)+len(crm.calls) != 0 {
		t.Fatalf("expected zero backend calls")
	}
	messages := payload.Messages()
	last := messages[len(messages)-1]
	if last.Role != "user" || last.Content != "Good morning!" {
		t.Fatalf("last message = %+v", last)
	}
}

func TestAssembleDeterministic(t *testing.T) {
	rows := map[string][]backend.Record{
		"donations": {{ID: "1", Label: "500.00 to Tanvir Fund on 2026-05-01"}},
		"events":    {{ID: "2", Label: "Annual Gala | 2026-10-01"}},
	}
	history := []Turn{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}

	run := func() PromptPayload {
		accounting := &stubBackend{source: backend.SourceAccounting, rows: rows}
		crm := &stubBackend{source: backend.SourceCRM, rows: rows}
		assembler := newTestAssembler(accounting, crm)
		payload, err := assembler.Assemble(context.Background(), "Show donations before the gala", history)
		if err != nil {
			t.Fatalf("assemble failed: %v", err)
		}
		return payload
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("payloads differ:\n%+v\n%+v", first, second)
	}
	if fmt.Sprintf("%v", first.Messages()) != fmt.Sprintf("%v", second.Messages()) {
		t.Fatalf("rendered messages differ")
	}
}

func TestAssembleFailureIsolation(t *testing.T) {
	accounting := &stubBackend{source: backend.SourceAccounting, err: errors.New("timeout")}
	crm := &stubBackend{source: backend.SourceCRM, rows: map[string][]backend.Record{
		"contacts": {{ID: "1", Label: "Rashid Ahmed | rashid@example.org"}},
	}}
	assembler := newTestAssembler(accounting, crm)

	payload, err := assembler.Assemble(context.Background(), "Email the donors about their donations", nil)
	if err != nil {
		t.Fatalf("assemble must not fail on a backend error: %v", err)
	}

	var accountingFragment, crmFragment *Fragment
	for i := range payload.Fragments {
		switch payload.Fragments[i].Source {
		case backend.SourceAccounting:
			accountingFragment = &payload.Fragments[i]
		case backend.SourceCRM:
			crmFragment = &payload.Fragments[i]
		}
	}
	if accountingFragment == nil || accountingFragment.Note != "accounting data unavailable" {
		t.Fatalf("accounting fragment = %+v", accountingFragment)
	}
	if crmFragment == nil || len(crmFragment.Rows) != 1 {
		t.Fatalf("crm fragment = %+v", crmFragment)
	}
	if payload.Query == "" {
		t.Fatalf("query dropped")
	}
}

func TestAssembleCrossSystem(t *testing.T) {
	accounting := &stubBackend{source: backend.SourceAccounting, rows: map[string][]backend.Record{
		"donations": {{ID: "1", Label: "1000.00 on 2026-01-15"}},
	}}
	crm := &stubBackend{source: backend.SourceCRM, rows: map[string][]backend.Record{
		"contacts": {{ID: "9", Label: "The Ahmeds | ahmeds@example.org"}},
	}}
	assembler := newTestAssembler(accounting, crm)

	payload, err := assembler.Assemble(context.Background(), "Draft a thank you email for the Ahmeds", nil)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if len(accounting.calls) == 0 || len(crm.calls) == 0 {
		t.Fatalf("expected both backends queried (accounting=%d crm=%d)", len(accounting.calls), len(crm.calls))
	}
	sources := map[backend.Source]bool{}
	for _, fragment := range payload.Fragments {
		sources[fragment.Source] = true
	}
	if !sources[backend.SourceAccounting] || !sources[backend.SourceCRM] {
		t.Fatalf("fragments = %+v", payload.Fragments)
	}
}

func TestAssembleAccountingFragmentsFirst(t *testing.T) {
	accounting := &stubBackend{source: backend.SourceAccounting}
	crm := &stubBackend{source: backend.SourceCRM}
	assembler := newTestAssembler(accounting, crm)

	payload, _ := assembler.Assemble(context.Background(), "Show contacts and funds", nil)
	if len(payload.Fragments) != 2 {
		t.Fatalf("fragments = %+v", payload.Fragments)
	}
	if payload.Fragments[0].Source != backend.SourceAccounting || payload.Fragments[1].Source != backend.SourceCRM {
		t.Fatalf("order = %v then %v", payload.Fragments[0].Source, payload.Fragments[1].Source)
	}
}

func TestAssembleCapsRowsPerFragment(t *testing.T) {
	var many []backend.Record
	for i := 0; i < 20; i++ {
		many = append(many, backend.Record{ID: fmt.Sprintf("%d", i), Label: fmt.Sprintf("fund %d", i)})
	}
	accounting := &stubBackend{source: backend.SourceAccounting, rows: map[string][]backend.Record{"funds": many}}
	crm := &stubBackend{source: backend.SourceCRM}
	assembler := NewAssembler([]backend.Client{accounting, crm},
		AssemblerConfig{SystemPrompt: "s", FragmentRows: 5}, nil)

	payload, _ := assembler.Assemble(context.Background(), "List all funds", nil)
	if len(payload.Fragments[0].Rows) != 5 {
		t.Fatalf("rows = %d, want 5", len(payload.Fragments[0].Rows))
	}
}

func TestTrimHistoryKeepsNewest(t *testing.T) {
	var history []Turn
	for i := 0; i < 50; i++ {
		history = append(history, Turn{Role: "user", Content: fmt.Sprintf("turn %d", i)})
	}
	trimmed := TrimHistory(history, 40)
	if len(trimmed) != 40 {
		t.Fatalf("trimmed = %d", len(trimmed))
	}
	if trimmed[0].Content != "turn 10" || trimmed[39].Content != "turn 49" {
		t.Fatalf("window = %q .. %q", trimmed[0].Content, trimmed[39].Content)
	}
}

func TestMessagesOrder(t *testing.T) {
	payload := PromptPayload{
		System: "instructions",
		Fragments: []Fragment{
			{Source: backend.SourceAccounting, Kind: "funds", Rows: []string{"Tanvir Fund"}},
		},
		History: []Turn{{Role: "user", Content: "earlier"}, {Role: "assistant", Content: "reply"}},
		Query:   "current question",
	}
	messages := payload.Messages()
	if len(messages) != 4 {
		t.Fatalf("messages = %d", len(messages))
	}
	if messages[0].Role != "system" {
		t.Fatalf("first role = %s", messages[0].Role)
	}
	if messages[3].Role != "user" || messages[3].Content != "current question" {
		t.Fatalf("last = %+v", messages[3])
	}
}
