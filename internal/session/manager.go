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

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"jidhr/pkg/errors"
)

// Manager creates and loads sessions against a Store.
type Manager struct {
	store Store
}

// NewManager creates a session manager.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Create makes a new empty session with a generated ID.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	now := time.Now()
	session := &Session{
		ID:        "session-" + uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get loads an existing session.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	return m.store.Get(ctx, id)
}

// GetOrCreate loads the session with id, creating a fresh one when id is
// empty or unknown.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return m.Create(ctx)
	}
	session, err := m.store.Get(ctx, id)
	if stderrors.Is(err, errors.ErrNotFound) {
		return m.Create(ctx)
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Save persists the session.
func (m *Manager) Save(ctx context.Context, session *Session) error {
	return m.store.Save(ctx, session)
}

// Clear resets the session's history and draft in place.
func (m *Manager) Clear(ctx context.Context, id string) error {
	session, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	session.Reset()
	return m.store.Save(ctx, session)
}
