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
	"time"

	"jidhr/pkg/metrics"
)

// RateLimitedClient wraps a Client and applies rate limiting around each
// call. A nil limiter degrades to a direct call.
type RateLimitedClient struct {
	inner   Client
	limiter *RateLimiter
}

// NewRateLimitedClient wraps inner with limiter.
func NewRateLimitedClient(inner Client, limiter *RateLimiter) *RateLimitedClient {
	return &RateLimitedClient{inner: inner, limiter: limiter}
}

// Chat implements Client.Chat.
func (c *RateLimitedClient) Chat(messages []Message, options GenerateOptions) (string, error) {
	return c.ChatWithContext(context.Background(), messages, options)
}

// ChatWithContext waits for the limiter, then delegates to the inner client.
func (c *RateLimitedClient) ChatWithContext(ctx context.Context, messages []Message, options GenerateOptions) (string, error) {
	if c.limiter != nil {
		start := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		if waited := time.Since(start); waited > 100*time.Millisecond {
			metrics.RateLimitWaitSeconds.WithLabelValues("llm", c.inner.Provider()).Observe(waited.Seconds())
		}
		defer c.limiter.Release()
	}
	return c.inner.ChatWithContext(ctx, messages, options)
}

// Model returns the inner client's model name.
func (c *RateLimitedClient) Model() string { return c.inner.Model() }

// Provider returns the inner client's provider name.
func (c *RateLimitedClient) Provider() string { return c.inner.Provider() }
