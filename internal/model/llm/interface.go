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

package llm

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the completion endpoint cannot produce a
// reply. It is the only hard failure a chat request surfaces.
var ErrUnavailable = errors.New("model unavailable")

// Message is one turn sent to the completion endpoint.
type Message struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}

// GenerateOptions bounds a single completion call.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// Client is a chat completion client.
type Client interface {
	// Chat sends an ordered message list and returns the reply text.
	Chat(messages []Message, options GenerateOptions) (string, error)

	// ChatWithContext is Chat with cancellation.
	ChatWithContext(ctx context.Context, messages []Message, options GenerateOptions) (string, error)

	// Model returns the configured model name.
	Model() string

	// Provider returns the provider name.
	Provider() string
}
