// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config files searched, in order. The
// first one found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tracktarr/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envMappings maps environment variables (lowercased) to koanf paths.
var envMappings = map[string]string{
	"http_host":                "server.host",
	"port":                     "server.port",
	"http_read_timeout":        "server.read_timeout",
	"http_write_timeout":       "server.write_timeout",
	"http_shutdown_timeout":    "server.shutdown_timeout",
	"cors_origins":             "server.cors_origins",
	"registration_rate_limit":  "server.registration_limit",
	"registration_rate_window": "server.registration_window",

	"service_name":     "service.name",
	"media_server_url": "service.media_server_url",

	"database_url":             "database.url",
	"database_max_conns":       "database.max_conns",
	"database_connect_timeout": "database.connect_timeout",

	"trakt_host":                "trakt.host",
	"trakt_client_id":           "trakt.client_id",
	"trakt_client_secret":       "trakt.client_secret",
	"trakt_timeout":             "trakt.timeout",
	"trakt_requests_per_second": "trakt.requests_per_second",
	"trakt_burst":               "trakt.burst",

	"jellyfin_url":      "jellyfin.url",
	"jellyfin_token":    "jellyfin.token",
	"jellyfin_username": "jellyfin.username",
	"jellyfin_password": "jellyfin.password",
	"jellyfin_timeout":  "jellyfin.timeout",

	"discord_bot_token":           "discord.bot_token",
	"discord_channel_id":          "discord.channel_id",
	"discord_admin_ids":           "discord.admin_ids",
	"discord_api_url":             "discord.api_url",
	"discord_gateway_url":         "discord.gateway_url",
	"discord_timeout":             "discord.timeout",
	"discord_requests_per_second": "discord.requests_per_second",

	"email_host":     "mail.host",
	"email_port":     "mail.port",
	"email_user":     "mail.user",
	"email_password": "mail.password",
	"email_from":     "mail.from",
	"email_debounce": "mail.debounce",

	"sync_interval":         "sync.interval",
	"sync_rating_threshold": "sync.rating_threshold",
	"sync_rated_limit":      "sync.rated_limit",
	"sync_wanted_limit":     "sync.wanted_limit",
	"sync_progress_limit":   "sync.progress_limit",
	"sync_buffer_duration":  "sync.buffer_duration",
	"sync_list_name":        "sync.list_name",
	"sync_user_concurrency": "sync.user_concurrency",

	"cache_backend":        "cache.backend",
	"cache_path":           "cache.path",
	"cache_activities_ttl": "cache.activities_ttl",
	"cache_user_data_ttl":  "cache.user_data_ttl",
	"cache_show_ttl":       "cache.show_ttl",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// sliceConfigPaths are parsed from comma-separated strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"discord.admin_ids",
}

// Load reads defaults, the optional config file and the environment, in
// that order of precedence, and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// processSliceFields splits comma-separated env values into slices. Values
// already loaded as lists from YAML are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
