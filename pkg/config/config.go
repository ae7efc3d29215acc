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

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the process-wide configuration, built once at startup.
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Assistant  AssistantConfig  `mapstructure:"assistant"`
	Backends   BackendsConfig   `mapstructure:"backends"`
	Model      ModelConfig      `mapstructure:"model"`
	Session    SessionConfig    `mapstructure:"session"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
}

// APIConfig configures the HTTP surface.
type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	Timeout    string           `mapstructure:"timeout"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

// CORSConfig configures CORS handling.
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig configures auth middleware.
type MiddlewareConfig struct {
	Auth          bool   `mapstructure:"auth"`
	JWTKey        string `mapstructure:"jwt_key"`
	JWTTimeout    string `mapstructure:"jwt_timeout"`     // e.g. "1h"
	JWTMaxRefresh string `mapstructure:"jwt_max_refresh"` // e.g. "1h"
	AdminUser     string `mapstructure:"admin_user"`
	AdminPassword string `mapstructure:"admin_password"`
}

// AssistantConfig bounds the context assembler.
type AssistantConfig struct {
	SystemPrompt string `mapstructure:"system_prompt"` // empty uses the built-in prompt
	HistoryLimit int    `mapstructure:"history_limit"` // kept messages after trimming; <=0 uses default 40
	FetchLimit   int    `mapstructure:"fetch_limit"`   // rows requested per backend call; <=0 uses default 10
	FragmentRows int    `mapstructure:"fragment_rows"` // rows rendered per fragment; <=0 uses default 5
}

// BackendsConfig holds the two external data systems.
type BackendsConfig struct {
	HubSpot HubSpotConfig `mapstructure:"hubspot"`
	CSuite  CSuiteConfig  `mapstructure:"csuite"`
}

// HubSpotConfig configures the CRM backend.
type HubSpotConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	AccessToken string `mapstructure:"access_token"`
	// EventOwnerID is the default organizer for synced marketing events.
	EventOwnerID string `mapstructure:"event_owner_id"`
	// NewsletterSubscriptionID is the subscription updated by the newsletter sync.
	NewsletterSubscriptionID string `mapstructure:"newsletter_subscription_id"`
}

// CSuiteConfig configures the fund-accounting backend.
type CSuiteConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Env       string `mapstructure:"env"` // live | test; empty defaults to live
}

// ModelConfig configures the completion endpoint.
type ModelConfig struct {
	Provider          string  `mapstructure:"provider"` // openrouter
	Name              string  `mapstructure:"name"`
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	Referer           string  `mapstructure:"referer"`
	Title             string  `mapstructure:"title"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	Temperature       float64 `mapstructure:"temperature"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"` // <=0 disables rate limiting
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

// SessionConfig selects the session store backend.
type SessionConfig struct {
	Store    string `mapstructure:"store"` // memory | redis
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	TTL      string `mapstructure:"ttl"` // redis key TTL, e.g. "24h"
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig configures metrics and tracing.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// PrometheusConfig configures the metrics endpoint.
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// SecretsConfig selects the credential source.
type SecretsConfig struct {
	Provider string      `mapstructure:"provider"` // env | vault | memory
	Vault    VaultConfig `mapstructure:"vault"`
}

// VaultConfig configures the HashiCorp Vault secret store.
type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	PathPrefix string `mapstructure:"path_prefix"`
}

// LoadConfig reads the config file at path and resolves ${ENV} placeholders.
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	replaceEnvVars(&config)
	return &config, nil
}

// LoadAPIConfig loads the default API config (configs/api.yaml).
func LoadAPIConfig() (*Config, error) {
	return LoadConfig("configs/api.yaml")
}

// replaceEnvVars resolves ${VAR} placeholders on credential fields.
func replaceEnvVars(config *Config) {
	fields := []*string{
		&config.Model.APIKey,
		&config.Backends.HubSpot.AccessToken,
		&config.Backends.CSuite.APIKey,
		&config.Backends.CSuite.APISecret,
		&config.API.Middleware.JWTKey,
		&config.API.Middleware.AdminPassword,
		&config.Session.Password,
		&config.Secrets.Vault.Token,
	}
	for _, f := range fields {
		*f = expandEnv(*f)
	}
}

// expandEnv resolves a single ${VAR} placeholder; non-placeholders pass through.
func expandEnv(v string) string {
	if !strings.HasPrefix(v, "$") {
		return v
	}
	name := strings.TrimPrefix(strings.TrimSuffix(v, "}"), "${")
	name = strings.TrimPrefix(name, "$")
	if val := os.Getenv(name); val != "" {
		return val
	}
	return v
}

// Validate returns the names of required credentials that are missing or
// still unresolved placeholders.
func (c *Config) Validate() []string {
	var missing []string
	check := func(name, v string) {
		if v == "" || strings.HasPrefix(v, "$") {
			missing = append(missing, name)
		}
	}
	check("OPENROUTER_API_KEY", c.Model.APIKey)
	check("HUBSPOT_ACCESS_TOKEN", c.Backends.HubSpot.AccessToken)
	check("CSUITE_API_KEY", c.Backends.CSuite.APIKey)
	check("CSUITE_API_SECRET", c.Backends.CSuite.APISecret)
	return missing
}
