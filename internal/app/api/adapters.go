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

package api

import (
	"context"
	"time"

	"jidhr/internal/assistant"
	"jidhr/internal/backend/hubspot"
)

// hubspotWriter adapts hubspot.Client to assistant.CRMWriter.
type hubspotWriter struct {
	client *hubspot.Client
}

var _ assistant.CRMWriter = (*hubspotWriter)(nil)

func (w *hubspotWriter) CreateTask(ctx context.Context, subject, body string, dueAt time.Time) (string, error) {
	task, err := w.client.CreateTask(ctx, subject, body, dueAt)
	if err != nil {
		return "", err
	}
	return task.ID, nil
}

func (w *hubspotWriter) CreateEmailDraft(ctx context.Context, name, subject, htmlBody, template string) (string, error) {
	return w.client.CreateEmailDraft(ctx, name, subject, htmlBody, template)
}

func (w *hubspotWriter) CreateSocialPost(ctx context.Context, post assistant.SocialPostRequest) error {
	return w.client.CreateSocialPost(ctx, hubspot.SocialPost{
		Platform:  post.Platform,
		Body:      post.Body,
		LinkURL:   post.LinkURL,
		PhotoURL:  post.PhotoURL,
		TriggerAt: post.ScheduledAt,
	})
}

func (w *hubspotWriter) AvailablePlatforms(ctx context.Context) ([]string, error) {
	return w.client.AvailablePlatforms(ctx)
}
