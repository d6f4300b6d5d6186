// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Service  ServiceConfig  `koanf:"service"`
	Database DatabaseConfig `koanf:"database"`
	Trakt    TraktConfig    `koanf:"trakt"`
	Jellyfin JellyfinConfig `koanf:"jellyfin"`
	Discord  DiscordConfig  `koanf:"discord"`
	Mail     MailConfig     `koanf:"mail"`
	Sync     SyncConfig     `koanf:"sync"`
	Cache    CacheConfig    `koanf:"cache"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`

	// RegistrationLimit registrations are accepted per client IP and
	// RegistrationWindow.
	RegistrationLimit  int           `koanf:"registration_limit"`
	RegistrationWindow time.Duration `koanf:"registration_window"`
}

// ServiceConfig describes the household service to its users.
type ServiceConfig struct {
	Name string `koanf:"name"`

	// MediaServerURL is the address users open to watch, shown in emails.
	MediaServerURL string `koanf:"media_server_url"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	MaxConns       int32         `koanf:"max_conns"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// TraktConfig holds watch-tracker API settings.
type TraktConfig struct {
	Host              string        `koanf:"host"`
	ClientID          string        `koanf:"client_id"`
	ClientSecret      string        `koanf:"client_secret"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
}

// JellyfinConfig holds media-server settings. Token takes precedence over
// Username and Password.
type JellyfinConfig struct {
	URL      string        `koanf:"url"`
	Token    string        `koanf:"token"`
	Username string        `koanf:"username"`
	Password string        `koanf:"password"`
	Timeout  time.Duration `koanf:"timeout"`
}

// DiscordConfig holds the admin chat settings.
type DiscordConfig struct {
	BotToken          string        `koanf:"bot_token"`
	ChannelID         string        `koanf:"channel_id"`
	AdminIDs          []string      `koanf:"admin_ids"`
	APIURL            string        `koanf:"api_url"`
	GatewayURL        string        `koanf:"gateway_url"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
}

// MailConfig holds SMTP settings.
type MailConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`

	// Debounce is the quiet period before a user's pending updates are
	// emailed as one message.
	Debounce time.Duration `koanf:"debounce"`
}

// Enabled reports whether email delivery is configured.
func (c *MailConfig) Enabled() bool {
	return c.Host != ""
}

// SyncConfig holds the reconciliation settings.
type SyncConfig struct {
	Interval        time.Duration `koanf:"interval"`
	RatingThreshold int           `koanf:"rating_threshold"`
	RatedLimit      int           `koanf:"rated_limit"`
	WantedLimit     int           `koanf:"wanted_limit"`
	ProgressLimit   int           `koanf:"progress_limit"`

	// BufferDuration is the watch time queued ahead of a show in progress.
	BufferDuration  time.Duration `koanf:"buffer_duration"`
	ListName        string        `koanf:"list_name"`
	UserConcurrency int           `koanf:"user_concurrency"`
}

// CacheConfig holds watch-tracker response caching settings.
type CacheConfig struct {
	Backend       string        `koanf:"backend"`
	Path          string        `koanf:"path"`
	ActivitiesTTL time.Duration `koanf:"activities_ttl"`
	UserDataTTL   time.Duration `koanf:"user_data_ttl"`
	ShowTTL       time.Duration `koanf:"show_ttl"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			RegistrationLimit:  5,
			RegistrationWindow: time.Hour,
		},
		Service: ServiceConfig{
			Name: "Tracktarr",
		},
		Database: DatabaseConfig{
			MaxConns:       10,
			ConnectTimeout: 10 * time.Second,
		},
		Trakt: TraktConfig{
			Host:              "api.trakt.tv",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 3,
			Burst:             5,
		},
		Jellyfin: JellyfinConfig{
			Timeout: 30 * time.Second,
		},
		Discord: DiscordConfig{
			APIURL:            "https://discord.com/api/v10",
			GatewayURL:        "wss://gateway.discord.gg/?v=10&encoding=json",
			Timeout:           15 * time.Second,
			RequestsPerSecond: 5,
		},
		Mail: MailConfig{
			Port:     587,
			Debounce: 60 * time.Second,
		},
		Sync: SyncConfig{
			Interval:        time.Minute,
			RatingThreshold: 10,
			RatedLimit:      80,
			WantedLimit:     30,
			ProgressLimit:   10,
			BufferDuration:  150 * time.Minute,
			ListName:        "Jellyfin",
			UserConcurrency: 4,
		},
		Cache: CacheConfig{
			Backend:       "memory",
			Path:          "/data/cache",
			ActivitiesTTL: 60 * time.Second,
			UserDataTTL:   24 * time.Hour,
			ShowTTL:       24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
