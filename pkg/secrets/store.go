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

package secrets

import (
	"context"
	"fmt"
)

// Store resolves named credentials (API keys, tokens).
type Store interface {
	// Get returns the secret value for key.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a secret value.
	Set(ctx context.Context, key string, value string) error

	// Delete removes a secret.
	Delete(ctx context.Context, key string) error

	// List returns secret keys under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Config selects a Store implementation.
type Config struct {
	Provider string      // env | vault | memory
	Vault    VaultConfig // used when Provider == "vault"
}

// NewStore builds a Store from config; the default is the env store.
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "", "env":
		return NewEnvStore(), nil
	case "memory":
		return NewMemoryStore(), nil
	case "vault":
		return NewVaultStore(config.Vault)
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", config.Provider)
	}
}
