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
	"encoding/json"
	stderrors "errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"jidhr/internal/model/llm"
	"jidhr/internal/session"
)

// platformLimits caps post length per platform.
var platformLimits = map[string]int{
	"twitter":   280,
	"instagram": 450,
	"facebook":  500,
	"linkedin":  700,
}

// The command triggers are deliberately narrow phrases. A request like
// "Draft a thank you email for the Ahmeds" is a context query, not a draft
// command, and must reach the assembler so both backends get consulted.
var (
	taskCommandPattern  = regexp.MustCompile(`\b(?:create|add|make)\s+(?:a\s+)?task\b|\bnew task\b|\bremind me to\b|\bset a reminder\b`)
	emailCommandPattern = regexp.MustCompile(
		`\b(?:draft|write|create|compose)\s+(?:an?\s+)?email\b|\bemail draft\b|\bmarketing email\b|\bnewsletter about\b`)
	socialCommandPattern = regexp.MustCompile(
		`\b(?:draft|write|create|schedule)\s+an?\s+(?:(?:facebook|linkedin|twitter|instagram|social(?:\s+media)?)\s+)?post\b` +
			`|\b(?:facebook|linkedin|twitter|instagram|social(?:\s+media)?)\s+post\b` +
			`|\b(?:draft|write)\s+an?\s+(?:facebook|linkedin|twitter|instagram)\b` +
			`|\b(?:draft|write|compose)\s+a\s+tweet\b`)
)

// handleContentCommand routes task creation, email drafting, and social post
// drafting. When a draft is active the whole message belongs to the draft
// conversation. Returns handled=false for anything else.
func (a *Assistant) handleContentCommand(ctx context.Context, sess *session.Session, message string) (string, bool, error) {
	if sess.Draft.Active {
		reply, err := a.continueDraft(ctx, sess, message)
		return reply, true, err
	}

	lowered := strings.ToLower(message)
	switch {
	case taskCommandPattern.MatchString(lowered):
		reply, err := a.createTask(ctx, message)
		return reply, true, err
	case socialCommandPattern.MatchString(lowered):
		reply, err := a.startSocialDraft(ctx, sess, message)
		return reply, true, err
	case emailCommandPattern.MatchString(lowered):
		reply, err := a.startEmailDraft(ctx, sess, message)
		return reply, true, err
	}
	return "", false, nil
}

// taskDetails is what the model extracts from a task request.
type taskDetails struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	DueDays int    `json:"due_days"`
}

// createTask extracts task fields from the request and creates a CRM task.
func (a *Assistant) createTask(ctx context.Context, message string) (string, error) {
	if a.crm == nil {
		return "CRM access is not configured, so I can't create tasks.", nil
	}

	prompt := "Extract a task from this request. Reply with JSON only, shaped as " +
		`{"subject": "...", "body": "...", "due_days": 1}` +
		" where due_days counts from today.\n\nRequest: " + message
	raw, err := a.model.ChatWithContext(ctx, []llm.Message{{Role: "user", Content: prompt}}, llm.GenerateOptions{MaxTokens: 300})

	details := taskDetails{Subject: message, DueDays: 1}
	if err == nil {
		if parsed, ok := parseTaskJSON(raw); ok {
			details = parsed
		}
	}
	if details.DueDays <= 0 {
		details.DueDays = 1
	}

	dueAt := a.now().AddDate(0, 0, details.DueDays)
	taskID, err := a.crm.CreateTask(ctx, details.Subject, details.Body, dueAt)
	if err != nil {
		return fmt.Sprintf("I couldn't create the task: %v", err), nil
	}
	return fmt.Sprintf("Created task %q due %s (id %s).", details.Subject, dueAt.Format("Mon Jan 2"), taskID), nil
}

// parseTaskJSON decodes the model's JSON, tolerating markdown code fences.
func parseTaskJSON(raw string) (taskDetails, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var details taskDetails
	if err := json.Unmarshal([]byte(cleaned), &details); err != nil || details.Subject == "" {
		return taskDetails{}, false
	}
	return details, true
}

// startEmailDraft asks the model for a subject and body and opens a draft.
func (a *Assistant) startEmailDraft(ctx context.Context, sess *session.Session, message string) (string, error) {
	prompt := "Write a marketing email for a nonprofit foundation based on this request. " +
		"Reply exactly as two sections:\nSUBJECT: <subject line>\nBODY: <email body>\n\nRequest: " + message
	raw, err := a.queryModel(ctx, prompt, 800)
	if err != nil {
		return "", err
	}

	subject, body := parseSubjectBody(raw)
	if subject == "" {
		subject = "Draft email"
	}
	sess.Draft = session.Draft{
		Active:   true,
		Type:     "email",
		Subject:  subject,
		Body:     body,
		Template: detectTemplate(strings.ToLower(message)),
	}
	return emailPreview(sess.Draft) +
		"\n\nSay \"save it\" to create the draft, \"cancel\" to discard, or tell me what to change.", nil
}

// startSocialDraft asks the model for a post within the platform limit and
// opens a draft.
func (a *Assistant) startSocialDraft(ctx context.Context, sess *session.Session, message string) (string, error) {
	platform := detectPlatform(strings.ToLower(message))
	if platform == "" {
		platform = "facebook"
	}
	limit := platformLimits[platform]

	prompt := fmt.Sprintf("Write a %s post for a nonprofit foundation based on this request. "+
		"Keep it under %d characters. Reply with the post text only.\n\nRequest: %s",
		platform, limit, message)
	body, err := a.queryModel(ctx, prompt, 400)
	if err != nil {
		return "", err
	}
	body = enforceLimit(strings.TrimSpace(body), limit)

	sess.Draft = session.Draft{Active: true, Type: "social", Platform: platform, Body: body}
	return socialPreview(sess.Draft) +
		"\n\nSay \"post it\" to create a draft post, \"schedule for tomorrow\" to schedule it, " +
		"\"add link <url>\", \"cancel\", or tell me what to change.", nil
}

// continueDraft handles the next message of an active draft conversation.
func (a *Assistant) continueDraft(ctx context.Context, sess *session.Session, message string) (string, error) {
	lowered := strings.ToLower(strings.TrimSpace(message))

	if containsAny(lowered, "cancel", "discard", "never mind", "nevermind") {
		sess.ClearDraft()
		return "Discarded the draft.", nil
	}

	if sess.Draft.Type == "email" {
		return a.continueEmailDraft(ctx, sess, message, lowered)
	}
	return a.continueSocialDraft(ctx, sess, message, lowered)
}

func (a *Assistant) continueEmailDraft(ctx context.Context, sess *session.Session, message, lowered string) (string, error) {
	if containsAny(lowered, "save", "create it", "looks good", "send it to hubspot") {
		if a.crm == nil {
			return "CRM access is not configured, so I can't save the draft.", nil
		}
		draft := sess.Draft
		emailID, err := a.crm.CreateEmailDraft(ctx, draft.Subject, draft.Subject, draft.Body, draft.Template)
		if err != nil {
			return fmt.Sprintf("I couldn't save the email draft: %v", err), nil
		}
		sess.ClearDraft()
		return fmt.Sprintf("Saved the email draft %q (id %s).", draft.Subject, emailID), nil
	}

	// treat anything else as a revision instruction
	prompt := fmt.Sprintf("Revise this email per the instruction. Reply exactly as:\n"+
		"SUBJECT: <subject line>\nBODY: <email body>\n\n"+
		"Current subject: %s\nCurrent body:\n%s\n\nInstruction: %s",
		sess.Draft.Subject, sess.Draft.Body, message)
	raw, err := a.queryModel(ctx, prompt, 800)
	if err != nil {
		return "", err
	}
	subject, body := parseSubjectBody(raw)
	if subject != "" {
		sess.Draft.Subject = subject
	}
	if body != "" {
		sess.Draft.Body = body
	}
	return emailPreview(sess.Draft), nil
}

var linkPattern = regexp.MustCompile(`https?://\S+`)

func (a *Assistant) continueSocialDraft(ctx context.Context, sess *session.Session, message, lowered string) (string, error) {
	switch {
	case strings.HasPrefix(lowered, "add link"), strings.HasPrefix(lowered, "include link"):
		if url := linkPattern.FindString(message); url != "" {
			sess.Draft.LinkURL = url
			return "Added the link.\n\n" + socialPreview(sess.Draft), nil
		}
		return "I couldn't find a URL in that message.", nil

	case strings.Contains(lowered, "schedule"):
		when, ok := parseScheduleTime(lowered, a.now())
		if !ok {
			return "Tell me when to schedule it, e.g. \"schedule for tomorrow at 3pm\".", nil
		}
		return a.publishSocialDraft(ctx, sess, when)

	case containsAny(lowered, "post it", "publish", "save it", "save", "looks good"):
		return a.publishSocialDraft(ctx, sess, time.Time{})
	}

	if platform := detectPlatform(lowered); platform != "" && platform != sess.Draft.Platform {
		sess.Draft.Platform = platform
		sess.Draft.Body = enforceLimit(sess.Draft.Body, platformLimits[platform])
		return "Switched to " + platform + ".\n\n" + socialPreview(sess.Draft), nil
	}

	limit := platformLimits[sess.Draft.Platform]
	prompt := fmt.Sprintf("Revise this %s post per the instruction. Keep it under %d characters. "+
		"Reply with the post text only.\n\nCurrent post:\n%s\n\nInstruction: %s",
		sess.Draft.Platform, limit, sess.Draft.Body, message)
	body, err := a.queryModel(ctx, prompt, 400)
	if err != nil {
		return "", err
	}
	sess.Draft.Body = enforceLimit(strings.TrimSpace(body), limit)
	return socialPreview(sess.Draft), nil
}

func (a *Assistant) publishSocialDraft(ctx context.Context, sess *session.Session, when time.Time) (string, error) {
	if a.crm == nil {
		return "CRM access is not configured, so I can't publish posts.", nil
	}
	draft := sess.Draft
	err := a.crm.CreateSocialPost(ctx, SocialPostRequest{
		Platform:    draft.Platform,
		Body:        draft.Body,
		LinkURL:     draft.LinkURL,
		PhotoURL:    draft.PhotoURL,
		ScheduledAt: when,
	})
	if err != nil {
		return fmt.Sprintf("I couldn't create the %s post: %v", draft.Platform, err), nil
	}
	sess.ClearDraft()
	if when.IsZero() {
		return fmt.Sprintf("Created a draft %s post.", draft.Platform), nil
	}
	return fmt.Sprintf("Scheduled the %s post for %s.", draft.Platform, when.Format("Mon Jan 2 3:04 PM")), nil
}

// queryModel is a bare single-prompt model call, wrapped in the model
// failure taxonomy.
func (a *Assistant) queryModel(ctx context.Context, prompt string, maxTokens int) (string, error) {
	reply, err := a.model.ChatWithContext(ctx, []llm.Message{{Role: "user", Content: prompt}}, llm.GenerateOptions{MaxTokens: maxTokens})
	if err != nil {
		if stderrors.Is(err, ErrModelUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return reply, nil
}

// parseSubjectBody splits a "SUBJECT: ...\nBODY: ..." reply.
func parseSubjectBody(raw string) (string, string) {
	var subject string
	var bodyLines []string
	inBody := false
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(strings.ToUpper(trimmed), "SUBJECT:"):
			subject = strings.TrimSpace(trimmed[len("SUBJECT:"):])
		case strings.HasPrefix(strings.ToUpper(trimmed), "BODY:"):
			inBody = true
			if rest := strings.TrimSpace(trimmed[len("BODY:"):]); rest != "" {
				bodyLines = append(bodyLines, rest)
			}
		case inBody:
			bodyLines = append(bodyLines, line)
		}
	}
	return subject, strings.TrimSpace(strings.Join(bodyLines, "\n"))
}

var (
	brPattern  = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagPattern = regexp.MustCompile(`<[^>]+>`)
)

// stripHTML renders an HTML body as display text.
func stripHTML(body string) string {
	body = brPattern.ReplaceAllString(body, "\n")
	return strings.TrimSpace(tagPattern.ReplaceAllString(body, ""))
}

func emailPreview(draft session.Draft) string {
	preview := "Here's the email draft:\n\nSubject: " + draft.Subject + "\n\n" + stripHTML(draft.Body)
	if draft.Template != "" {
		preview += "\n\n(template: " + draft.Template + ")"
	}
	return preview
}

func socialPreview(draft session.Draft) string {
	preview := fmt.Sprintf("Here's the %s post (%d/%d characters):\n\n%s",
		draft.Platform, utf8.RuneCountInString(draft.Body), platformLimits[draft.Platform], draft.Body)
	if draft.LinkURL != "" {
		preview += "\n\nLink: " + draft.LinkURL
	}
	return preview
}

func detectPlatform(lowered string) string {
	for _, platform := range []string{"twitter", "linkedin", "instagram", "facebook"} {
		if strings.Contains(lowered, platform) {
			return platform
		}
	}
	if strings.Contains(lowered, "tweet") {
		return "twitter"
	}
	return ""
}

func detectTemplate(lowered string) string {
	for _, template := range []string{"newsletter", "announcement", "appeal"} {
		if strings.Contains(lowered, template) {
			return template
		}
	}
	return ""
}

// enforceLimit truncates to limit characters, not bytes, so multibyte text
// stays valid UTF-8.
func enforceLimit(body string, limit int) string {
	if limit <= 0 {
		return body
	}
	runes := []rune(body)
	if len(runes) <= limit {
		return body
	}
	return strings.TrimSpace(string(runes[:limit]))
}

func containsAny(text string, candidates ...string) bool {
	for _, candidate := range candidates {
		if strings.Contains(text, candidate) {
			return true
		}
	}
	return false
}

var timePattern = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(am|pm)`)

// parseScheduleTime resolves phrases like "tomorrow at 3pm" or "next week"
// against now. Defaults to 9:00 when no time of day is given.
func parseScheduleTime(lowered string, now time.Time) (time.Time, bool) {
	day := now
	dayKnown := false
	switch {
	case strings.Contains(lowered, "tomorrow"):
		day = now.AddDate(0, 0, 1)
		dayKnown = true
	case strings.Contains(lowered, "next week"):
		day = now.AddDate(0, 0, 7)
		dayKnown = true
	case strings.Contains(lowered, "today"), strings.Contains(lowered, "tonight"):
		dayKnown = true
	}

	hour, minute := 9, 0
	timeKnown := false
	if strings.Contains(lowered, "noon") {
		hour, timeKnown = 12, true
	} else if match := timePattern.FindStringSubmatch(lowered); match != nil {
		hour, _ = strconv.Atoi(match[1])
		if match[2] != "" {
			minute, _ = strconv.Atoi(match[2])
		}
		if match[3] == "pm" && hour < 12 {
			hour += 12
		}
		if match[3] == "am" && hour == 12 {
			hour = 0
		}
		timeKnown = true
	}

	if !dayKnown && !timeKnown {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location()), true
}
