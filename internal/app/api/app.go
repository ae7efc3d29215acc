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
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/hertz-contrib/jwt"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	apihttp "jidhr/internal/api/http"
	"jidhr/internal/api/http/middleware"
	"jidhr/internal/app"
	"jidhr/internal/assistant"
	"jidhr/internal/backend"
	"jidhr/internal/backend/csuite"
	"jidhr/internal/backend/hubspot"
	"jidhr/internal/model/llm"
	"jidhr/internal/session"
	"jidhr/internal/syncjob"
	"jidhr/pkg/config"
	"jidhr/pkg/log"
)

const defaultSystemPrompt = "You are Jidhr, the operations assistant for the AMCF foundation staff. " +
	"Answer questions using the data provided in the conversation context. " +
	"When the context notes that a data source is unavailable, say so instead of guessing. " +
	"Be concise and specific; quote amounts and dates exactly as given."

// otelShutdown closes the OpenTelemetry provider on shutdown.
type otelShutdown interface {
	Shutdown(ctx context.Context) error
}

// App is the assembled API application.
type App struct {
	bootstrap *app.Bootstrap
	router    *apihttp.Router
	hertz     *server.Hertz
	otel      otelShutdown
}

// NewApp wires the backends, model client, assistant, and HTTP surface.
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	cfg := bootstrap.Config
	logger := bootstrap.Logger

	var clients []backend.Client
	var crmWriter assistant.CRMWriter
	var runner *syncjob.Runner

	hubspotClient, err := newHubSpotClient(cfg)
	if err != nil {
		logger.Warn("hubspot client disabled", "error", err)
	} else {
		clients = append(clients, hubspotClient)
		crmWriter = &hubspotWriter{client: hubspotClient}
	}

	csuiteClient, err := newCSuiteClient(cfg)
	if err != nil {
		logger.Warn("csuite client disabled", "error", err)
	} else {
		clients = append(clients, csuiteClient)
	}

	if hubspotClient != nil && csuiteClient != nil {
		runner = syncjob.NewRunner(csuiteClient, hubspotClient, logger)
	}

	model, err := newModelClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("init model client: %w", err)
	}

	systemPrompt := cfg.Assistant.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	assembler := assistant.NewAssembler(clients, assistant.AssemblerConfig{
		SystemPrompt: systemPrompt,
		HistoryLimit: cfg.Assistant.HistoryLimit,
		FetchLimit:   cfg.Assistant.FetchLimit,
		FragmentRows: cfg.Assistant.FragmentRows,
	}, logger)

	var syncRunner assistant.SyncRunner
	if runner != nil {
		syncRunner = runner
	}
	asst := assistant.New(assembler, model, crmWriter, syncRunner, assistant.Config{
		HistoryLimit: cfg.Assistant.HistoryLimit,
		MaxTokens:    cfg.Model.MaxTokens,
		Temperature:  cfg.Model.Temperature,
	}, logger)

	sessions := session.NewManager(bootstrap.SessionStore)
	handler := apihttp.NewHandler(asst, sessions, cfg, logger)

	auth, err := newAuth(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init auth: %w", err)
	}
	router := apihttp.NewRouter(handler, middleware.NewMiddleware(), auth)

	return &App{bootstrap: bootstrap, router: router}, nil
}

// Run builds the server and blocks serving addr.
func (a *App) Run(addr string) error {
	hlog.SetLogger(hertzslog.NewLogger())

	tracingCfg := a.bootstrap.Config.Monitoring.Tracing
	if tracingCfg.Enable {
		serviceName := tracingCfg.ServiceName
		if serviceName == "" {
			serviceName = "jidhr-api"
		}
		opts := []provider.Option{
			provider.WithServiceName(serviceName),
			provider.WithExportEndpoint(tracingCfg.ExportEndpoint),
			provider.WithEnableMetrics(false),
		}
		if tracingCfg.Insecure {
			opts = append(opts, provider.WithInsecure())
		}
		a.otel = provider.NewOpenTelemetryProvider(opts...)

		tracer, tracerCfg := hertztracing.NewServerTracer()
		a.hertz = a.router.Build(addr, tracer)
		a.hertz.Use(hertztracing.ServerMiddleware(tracerCfg))
	} else {
		a.hertz = a.router.Build(addr)
	}

	a.bootstrap.Logger.Info("api listening", "addr", addr)
	a.hertz.Spin()
	return nil
}

// Shutdown stops the server and flushes telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	if a.otel != nil {
		return a.otel.Shutdown(ctx)
	}
	return nil
}

func newHubSpotClient(cfg *config.Config) (*hubspot.Client, error) {
	return hubspot.NewClient(hubspot.Config{
		BaseURL:                  cfg.Backends.HubSpot.BaseURL,
		AccessToken:              cfg.Backends.HubSpot.AccessToken,
		EventOwnerID:             cfg.Backends.HubSpot.EventOwnerID,
		NewsletterSubscriptionID: cfg.Backends.HubSpot.NewsletterSubscriptionID,
	})
}

func newCSuiteClient(cfg *config.Config) (*csuite.Client, error) {
	env := cfg.Backends.CSuite.Env
	if env == "" {
		env = "live"
	}
	return csuite.NewClient(csuite.Config{
		BaseURL:   cfg.Backends.CSuite.BaseURL,
		APIKey:    cfg.Backends.CSuite.APIKey,
		APISecret: cfg.Backends.CSuite.APISecret,
		Env:       env,
	})
}

func newModelClient(cfg *config.Config) (llm.Client, error) {
	client, err := llm.NewOpenRouterClient(llm.OpenRouterConfig{
		Model:   cfg.Model.Name,
		APIKey:  cfg.Model.APIKey,
		BaseURL: cfg.Model.BaseURL,
		Referer: cfg.Model.Referer,
		Title:   cfg.Model.Title,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Model.RequestsPerMinute <= 0 && cfg.Model.MaxConcurrent <= 0 {
		return client, nil
	}
	limiter := llm.NewRateLimiter(llm.LimitConfig{
		RequestsPerMinute: cfg.Model.RequestsPerMinute,
		MaxConcurrent:     cfg.Model.MaxConcurrent,
	})
	return llm.NewRateLimitedClient(client, limiter), nil
}

func newAuth(cfg *config.Config, logger *log.Logger) (*jwt.HertzJWTMiddleware, error) {
	mw := cfg.API.Middleware
	if !mw.Auth {
		return nil, nil
	}
	timeout, err := time.ParseDuration(mw.JWTTimeout)
	if err != nil && mw.JWTTimeout != "" {
		logger.Warn("invalid jwt timeout, using default", "value", mw.JWTTimeout, "error", err)
	}
	maxRefresh, err := time.ParseDuration(mw.JWTMaxRefresh)
	if err != nil && mw.JWTMaxRefresh != "" {
		logger.Warn("invalid jwt max refresh, using default", "value", mw.JWTMaxRefresh, "error", err)
	}
	return middleware.NewJWTAuth(middleware.JWTConfig{
		Key:           mw.JWTKey,
		Timeout:       timeout,
		MaxRefresh:    maxRefresh,
		AdminUser:     mw.AdminUser,
		AdminPassword: mw.AdminPassword,
	})
}
