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
	"strings"
	"testing"

	"jidhr/internal/backend"
	"jidhr/internal/model/llm"
	"jidhr/internal/session"
)

// fakeModel returns scripted replies in order, or a fixed error.
type fakeModel struct {
	replies []string
	err     error
	calls   [][]llm.Message
}

func (f *fakeModel) Chat(messages []llm.Message, options llm.GenerateOptions) (string, error) {
	return f.ChatWithContext(context.Background(), messages, options)
}

func (f *fakeModel) ChatWithContext(ctx context.Context, messages []llm.Message, options llm.GenerateOptions) (string, error) {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "default reply", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeModel) Model() string    { return "fake/model" }
func (f *fakeModel) Provider() string { return "fake" }

type fakeSync struct {
	job    string
	dryRun bool
	err    error
}

func (f *fakeSync) Run(ctx context.Context, job string, dryRun bool) (string, error) {
	f.job, f.dryRun = job, dryRun
	if f.err != nil {
		return "", f.err
	}
	return "Synced " + job + ".", nil
}

func newTestAssistant(model llm.Client, crm CRMWriter, sync SyncRunner) *Assistant {
	accounting := &stubBackend{source: backend.SourceAccounting, rows: map[string][]backend.Record{
		"funds": {{ID: "1", Label: "Tanvir Fund | balance 15200.00"}},
	}}
	crmBackend := &stubBackend{source: backend.SourceCRM}
	assembler := newTestAssembler(accounting, crmBackend)
	return New(assembler, model, crm, sync, Config{HistoryLimit: 6}, nil)
}

func TestProcessQueryAppendsAndTrims(t *testing.T) {
	model := &fakeModel{}
	assistant := newTestAssistant(model, nil, nil)
	sess := &session.Session{ID: "session-1"}

	for i := 0; i < 5; i++ {
		if _, err := assistant.ProcessQuery(context.Background(), sess, fmt.Sprintf("question %d", i)); err != nil {
			t.Fatalf("process failed: %v", err)
		}
	}
	if len(sess.Messages) != 6 {
		t.Fatalf("history = %d, want trimmed to 6", len(sess.Messages))
	}
	// newest exchange kept
	last := sess.Messages[len(sess.Messages)-2]
	if last.Content != "question 4" {
		t.Fatalf("last user turn = %q", last.Content)
	}
}

func TestProcessQueryModelFailure(t *testing.T) {
	model := &fakeModel{err: fmt.Errorf("%w: connection refused", llm.ErrUnavailable)}
	assistant := newTestAssistant(model, nil, nil)
	sess := &session.Session{ID: "session-1"}

	_, err := assistant.ProcessQuery(context.Background(), sess, "hello there")
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("error = %v, want ErrModelUnavailable", err)
	}
	if len(sess.Messages) != 0 {
		t.Fatalf("failed request must not be recorded, history = %d", len(sess.Messages))
	}
}

func TestProcessQueryEmptyMessage(t *testing.T) {
	assistant := newTestAssistant(&fakeModel{}, nil, nil)
	if _, err := assistant.ProcessQuery(context.Background(), &session.Session{ID: "s"}, "   "); err == nil {
		t.Fatalf("expected error for empty message")
	}
}

func TestProcessQuerySendsContextToModel(t *testing.T) {
	model := &fakeModel{replies: []string{"The Tanvir Fund holds 15200.00."}}
	assistant := newTestAssistant(model, nil, nil)
	sess := &session.Session{ID: "session-1"}

	reply, err := assistant.ProcessQuery(context.Background(), sess, "What's the balance in the Tanvir Fund?")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if reply != "The Tanvir Fund holds 15200.00." {
		t.Fatalf("reply = %q", reply)
	}
	if len(model.calls) != 1 {
		t.Fatalf("model calls = %d", len(model.calls))
	}
	system := model.calls[0][0]
	if system.Role != "system" {
		t.Fatalf("first message role = %s", system.Role)
	}
	if want := "Tanvir Fund | balance 15200.00"; !contains(system.Content, want) {
		t.Fatalf("system message missing fragment row:\n%s", system.Content)
	}
}

func TestProcessQueryContextDraftRequestHitsBothBackends(t *testing.T) {
	accounting := &stubBackend{source: backend.SourceAccounting, rows: map[string][]backend.Record{
		"donations": {{ID: "1", Label: "1000.00 on 2026-01-15"}},
	}}
	crm := &stubBackend{source: backend.SourceCRM, rows: map[string][]backend.Record{
		"contacts": {{ID: "9", Label: "The Ahmeds | ahmeds@example.org"}},
	}}
	model := &fakeModel{replies: []string{"Here's a warm note for the Ahmeds."}}
	assistant := New(newTestAssembler(accounting, crm), model, &fakeCRM{}, nil, Config{}, nil)
	sess := &session.Session{ID: "s"}

	reply, err := assistant.ProcessQuery(context.Background(), sess, "Draft a thank you email for the Ahmeds")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	// a context-bearing request must reach the assembler, not the draft flow
	if len(accounting.calls) == 0 || len(crm.calls) == 0 {
		t.Fatalf("expected both backends queried (accounting=%d crm=%d)", len(accounting.calls), len(crm.calls))
	}
	if sess.Draft.Active {
		t.Fatalf("no draft should be opened: %+v", sess.Draft)
	}
	if reply != "Here's a warm note for the Ahmeds." {
		t.Fatalf("reply = %q", reply)
	}
	system := model.calls[0][0].Content
	if !contains(system, "The Ahmeds | ahmeds@example.org") || !contains(system, "1000.00 on 2026-01-15") {
		t.Fatalf("system message missing fragment rows:\n%s", system)
	}
}

func TestSyncCommand(t *testing.T) {
	sync := &fakeSync{}
	model := &fakeModel{}
	assistant := newTestAssistant(model, nil, sync)
	sess := &session.Session{ID: "session-1"}

	reply, err := assistant.ProcessQuery(context.Background(), sess, "sync donations dry run")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if sync.job != "donations" || !sync.dryRun {
		t.Fatalf("sync = %q dryRun=%v", sync.job, sync.dryRun)
	}
	if reply != "Synced donations." {
		t.Fatalf("reply = %q", reply)
	}
	if len(model.calls) != 0 {
		t.Fatalf("sync commands must not hit the model")
	}
}

func TestSyncCommandFailureStaysConversational(t *testing.T) {
	sync := &fakeSync{err: errors.New("csuite rejected the signature")}
	assistant := newTestAssistant(&fakeModel{}, nil, sync)

	reply, err := assistant.ProcessQuery(context.Background(), &session.Session{ID: "s"}, "sync events")
	if err != nil {
		t.Fatalf("sync failure must not be a chat error: %v", err)
	}
	if !contains(reply, "failed") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestSyncCommandUnconfigured(t *testing.T) {
	assistant := newTestAssistant(&fakeModel{}, nil, nil)
	reply, err := assistant.ProcessQuery(context.Background(), &session.Session{ID: "s"}, "sync all")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !contains(reply, "not configured") {
		t.Fatalf("reply = %q", reply)
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
