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
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"jidhr/internal/model/llm"
	"jidhr/internal/session"
	"jidhr/pkg/errors"
	"jidhr/pkg/log"
	"jidhr/pkg/metrics"
)

// ErrModelUnavailable is the sole hard failure of a chat request: the
// completion endpoint could not produce a reply.
var ErrModelUnavailable = llm.ErrUnavailable

// SyncRunner runs one named sync job and returns a human-readable summary.
type SyncRunner interface {
	Run(ctx context.Context, job string, dryRun bool) (string, error)
}

// SocialPostRequest is a social post the assistant asks the CRM to create.
type SocialPostRequest struct {
	Platform    string
	Body        string
	LinkURL     string
	PhotoURL    string
	ScheduledAt time.Time // zero means draft
}

// CRMWriter is the write surface the content commands need.
type CRMWriter interface {
	CreateTask(ctx context.Context, subject, body string, dueAt time.Time) (string, error)
	CreateEmailDraft(ctx context.Context, name, subject, htmlBody, template string) (string, error)
	CreateSocialPost(ctx context.Context, post SocialPostRequest) error
	AvailablePlatforms(ctx context.Context) ([]string, error)
}

// Config tunes the assistant.
type Config struct {
	HistoryLimit int // max stored messages per session
	MaxTokens    int
	Temperature  float64
}

// Assistant processes one chat message end to end.
type Assistant struct {
	assembler *Assembler
	model     llm.Client
	crm       CRMWriter  // optional; content commands degrade without it
	sync      SyncRunner // optional; sync commands degrade without it
	config    Config
	logger    *log.Logger
	now       func() time.Time
}

// New creates an assistant. crm and sync may be nil.
func New(assembler *Assembler, model llm.Client, crm CRMWriter, sync SyncRunner, config Config, logger *log.Logger) *Assistant {
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = defaultHistoryLimit
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1024
	}
	return &Assistant{
		assembler: assembler,
		model:     model,
		crm:       crm,
		sync:      sync,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessQuery handles one user message: sync commands and content commands
// first, otherwise assemble context and query the model. The session history
// is appended to and trimmed in place; the caller persists it.
func (a *Assistant) ProcessQuery(ctx context.Context, sess *session.Session, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("message is empty: %w", errors.ErrInvalidArg)
	}
	start := time.Now()

	if reply, handled := a.handleSyncCommand(ctx, message); handled {
		a.record(sess, message, reply)
		metrics.ChatRequestTotal.WithLabelValues("ok").Inc()
		return reply, nil
	}

	reply, handled, err := a.handleContentCommand(ctx, sess, message)
	if handled {
		if err != nil {
			metrics.ChatRequestTotal.WithLabelValues("model_unavailable").Inc()
			return "", err
		}
		a.record(sess, message, reply)
		metrics.ChatRequestTotal.WithLabelValues("ok").Inc()
		return reply, nil
	}

	payload, err := a.assembler.Assemble(ctx, message, historyTurns(sess))
	if err != nil {
		metrics.ChatRequestTotal.WithLabelValues("bad_request").Inc()
		return "", err
	}

	reply, err = a.QueryLLM(ctx, payload)
	if err != nil {
		metrics.ChatRequestTotal.WithLabelValues("model_unavailable").Inc()
		return "", err
	}

	a.record(sess, message, reply)
	metrics.ChatRequestTotal.WithLabelValues("ok").Inc()
	metrics.ChatDuration.Observe(time.Since(start).Seconds())
	return reply, nil
}

// QueryLLM sends the payload to the completion endpoint and returns the
// trimmed reply. Any failure maps to ErrModelUnavailable.
func (a *Assistant) QueryLLM(ctx context.Context, payload PromptPayload) (string, error) {
	reply, err := a.model.ChatWithContext(ctx, payload.Messages(), llm.GenerateOptions{
		MaxTokens:   a.config.MaxTokens,
		Temperature: a.config.Temperature,
	})
	if err != nil {
		if a.logger != nil {
			a.logger.Error("model call failed", "error", err)
		}
		if stderrors.Is(err, ErrModelUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return strings.TrimSpace(reply), nil
}

// record appends the exchange and trims the stored history oldest-first.
func (a *Assistant) record(sess *session.Session, message, reply string) {
	sess.Append("user", message)
	sess.Append("assistant", reply)
	sess.Trim(a.config.HistoryLimit)
}

func historyTurns(sess *session.Session) []Turn {
	turns := make([]Turn, 0, len(sess.Messages))
	for _, message := range sess.Messages {
		turns = append(turns, Turn{Role: message.Role, Content: message.Content})
	}
	return turns
}

var syncCommandPattern = regexp.MustCompile(`^sync\s+(donations|events|newsletter|all)(?:\s+dry[\s-]?run)?$`)

// handleSyncCommand recognizes "sync donations|events|newsletter|all", with
// an optional "dry run" suffix. Sync failures are reported in the reply, not
// surfaced as chat errors.
func (a *Assistant) handleSyncCommand(ctx context.Context, message string) (string, bool) {
	lowered := strings.ToLower(strings.TrimSpace(message))
	match := syncCommandPattern.FindStringSubmatch(lowered)
	if match == nil {
		return "", false
	}
	if a.sync == nil {
		return "Sync jobs are not configured.", true
	}
	dryRun := strings.Contains(lowered, "dry")
	summary, err := a.sync.Run(ctx, match[1], dryRun)
	if err != nil {
		if a.logger != nil {
			a.logger.Error("sync command failed", "job", match[1], "error", err)
		}
		return fmt.Sprintf("Sync %s failed: %v", match[1], err), true
	}
	return summary, true
}
