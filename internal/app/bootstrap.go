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

package app

import (
	"context"
	"fmt"
	"time"

	"jidhr/internal/session"
	"jidhr/pkg/config"
	"jidhr/pkg/log"
	"jidhr/pkg/secrets"
)

// Bootstrap holds everything built once at startup and shared by the app.
type Bootstrap struct {
	Config       *config.Config
	Logger       *log.Logger
	Secrets      secrets.Store
	SessionStore session.Store
}

// NewBootstrap builds the shared process state from config.
func NewBootstrap(cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Vault: secrets.VaultConfig{
			Address:    cfg.Secrets.Vault.Address,
			Token:      cfg.Secrets.Vault.Token,
			PathPrefix: cfg.Secrets.Vault.PathPrefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init secret store: %w", err)
	}
	resolveCredentials(cfg, store, logger)

	sessionStore, err := newSessionStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Bootstrap{
		Config:       cfg,
		Logger:       logger,
		Secrets:      store,
		SessionStore: sessionStore,
	}, nil
}

// resolveCredentials fills credential fields the config file left empty from
// the secret store. Still-missing credentials surface via Config.Validate.
func resolveCredentials(cfg *config.Config, store secrets.Store, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fill := func(target *string, key string) {
		if *target != "" {
			return
		}
		value, err := store.Get(ctx, key)
		if err != nil {
			logger.Debug("credential not in secret store", "key", key)
			return
		}
		*target = value
	}
	fill(&cfg.Model.APIKey, "OPENROUTER_API_KEY")
	fill(&cfg.Backends.HubSpot.AccessToken, "HUBSPOT_ACCESS_TOKEN")
	fill(&cfg.Backends.CSuite.APIKey, "CSUITE_API_KEY")
	fill(&cfg.Backends.CSuite.APISecret, "CSUITE_API_SECRET")
}

// newSessionStore selects the session backend from config.
func newSessionStore(cfg *config.Config, logger *log.Logger) (session.Store, error) {
	switch cfg.Session.Store {
	case "", "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		ttl, err := time.ParseDuration(cfg.Session.TTL)
		if err != nil && cfg.Session.TTL != "" {
			logger.Warn("invalid session ttl, using default", "ttl", cfg.Session.TTL, "error", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store, err := session.NewRedisStore(ctx, session.RedisConfig{
			Addr:     cfg.Session.Addr,
			Password: cfg.Session.Password,
			DB:       cfg.Session.DB,
			TTL:      ttl,
		})
		if err != nil {
			return nil, fmt.Errorf("init redis session store: %w", err)
		}
		logger.Info("session store ready", "store", "redis", "addr", cfg.Session.Addr)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Session.Store)
	}
}
