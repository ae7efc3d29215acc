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

package session

import "time"

// Message is one conversation turn.
type Message struct {
	Role      string    `json:"role"` // user | assistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft holds in-progress content being refined across turns
// (a marketing email or a social post).
type Draft struct {
	Active      bool      `json:"active"`
	Type        string    `json:"type"` // email | social
	Subject     string    `json:"subject,omitempty"`
	Body        string    `json:"body,omitempty"`
	Template    string    `json:"template,omitempty"`
	Platform    string    `json:"platform,omitempty"`
	LinkURL     string    `json:"link_url,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at,omitempty"`
}

// Session is one staff conversation: an ordered, append-only message history
// plus any active draft.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
	Draft     Draft     `json:"draft"`
}

// Append adds one turn to the history.
func (s *Session) Append(role, content string) {
	now := time.Now()
	s.Messages = append(s.Messages, Message{Role: role, Content: content, CreatedAt: now})
	s.UpdatedAt = now
}

// Trim drops the oldest messages until at most limit remain.
func (s *Session) Trim(limit int) {
	if limit > 0 && len(s.Messages) > limit {
		s.Messages = s.Messages[len(s.Messages)-limit:]
	}
}

// ClearDraft discards any in-progress draft.
func (s *Session) ClearDraft() {
	s.Draft = Draft{}
}

// Reset drops the history and draft, keeping the session ID.
func (s *Session) Reset() {
	s.Messages = nil
	s.Draft = Draft{}
	s.UpdatedAt = time.Now()
}

// clone returns a deep copy so stored state cannot be mutated through
// a returned pointer.
func (s *Session) clone() *Session {
	copied := *s
	copied.Messages = make([]Message, len(s.Messages))
	copy(copied.Messages, s.Messages)
	return &copied
}
