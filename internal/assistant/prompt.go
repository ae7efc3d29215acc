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
	"strings"

	"jidhr/internal/backend"
	"jidhr/internal/model/llm"
)

// Turn is one prior conversation exchange half.
type Turn struct {
	Role    string // user | assistant
	Content string
}

// Fragment is one unit of retrieved backend data tagged by source. A failed
// fetch yields a fragment with no rows and a Note explaining the gap.
type Fragment struct {
	Source backend.Source
	Kind   string
	Rows   []string
	Note   string
}

// PromptPayload is everything sent to the model for one request: system
// instructions, ordered context fragments, trimmed history, and the current
// query. The current query is always present.
type PromptPayload struct {
	System    string
	Fragments []Fragment
	History   []Turn
	Query     string
}

// renderContext renders the fragments into one deterministic text block.
func renderContext(fragments []Fragment) string {
	if len(fragments) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Current data:\n")
	for _, fragment := range fragments {
		b.WriteString("[" + string(fragment.Source) + " / " + fragment.Kind + "]\n")
		if fragment.Note != "" {
			b.WriteString(fragment.Note + "\n")
			continue
		}
		if len(fragment.Rows) == 0 {
			b.WriteString("no matching records\n")
			continue
		}
		for _, row := range fragment.Rows {
			b.WriteString("- " + row + "\n")
		}
	}
	return b.String()
}

// Messages renders the payload as an ordered model message list:
// system (instructions + context), history turns, then the current query.
func (p PromptPayload) Messages() []llm.Message {
	system := p.System
	if context := renderContext(p.Fragments); context != "" {
		system = system + "\n\n" + context
	}

	messages := make([]llm.Message, 0, len(p.History)+2)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	for _, turn := range p.History {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: p.Query})
	return messages
}

// TrimHistory drops the oldest turns until at most limit remain. The current
// query is not part of history and so can never be dropped here.
func TrimHistory(history []Turn, limit int) []Turn {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}
