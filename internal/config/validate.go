// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true, "disabled": true,
}

// Validate checks that required configuration is present and in range.
// All problems are reported at once.
func (c *Config) Validate() error {
	var errs []error
	for _, validate := range []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateTrakt,
		c.validateJellyfin,
		c.validateDiscord,
		c.validateMail,
		c.validateSync,
		c.validateCache,
		c.validateLogging,
	} {
		if err := validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RegistrationLimit < 1 || c.Server.RegistrationWindow <= 0 {
		return fmt.Errorf("registration rate limit must be positive")
	}
	if c.Service.MediaServerURL != "" {
		if err := validateHTTPURL(c.Service.MediaServerURL, "MEDIA_SERVER_URL"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	u, err := url.Parse(c.Database.URL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is invalid: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL scheme must be postgres or postgresql, got: %s", u.Scheme)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("DATABASE_MAX_CONNS must be positive, got %d", c.Database.MaxConns)
	}
	return nil
}

func (c *Config) validateTrakt() error {
	if c.Trakt.Host == "" {
		return fmt.Errorf("TRAKT_HOST is required")
	}
	if c.Trakt.ClientID == "" {
		return fmt.Errorf("TRAKT_CLIENT_ID is required")
	}
	return nil
}

func (c *Config) validateJellyfin() error {
	if c.Jellyfin.URL == "" {
		return fmt.Errorf("JELLYFIN_URL is required")
	}
	if err := validateHTTPURL(c.Jellyfin.URL, "JELLYFIN_URL"); err != nil {
		return err
	}
	if c.Jellyfin.Token == "" && (c.Jellyfin.Username == "" || c.Jellyfin.Password == "") {
		return fmt.Errorf("JELLYFIN_TOKEN or JELLYFIN_USERNAME and JELLYFIN_PASSWORD are required")
	}
	return nil
}

func (c *Config) validateDiscord() error {
	if c.Discord.BotToken == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}
	if c.Discord.ChannelID == "" {
		return fmt.Errorf("DISCORD_CHANNEL_ID is required")
	}
	if len(c.Discord.AdminIDs) == 0 {
		return fmt.Errorf("DISCORD_ADMIN_IDS requires at least one admin")
	}
	return nil
}

func (c *Config) validateMail() error {
	if !c.Mail.Enabled() {
		return nil
	}
	if c.Mail.Port < 1 || c.Mail.Port > 65535 {
		return fmt.Errorf("EMAIL_PORT must be between 1 and 65535, got %d", c.Mail.Port)
	}
	if c.Mail.From == "" {
		return fmt.Errorf("EMAIL_FROM is required when EMAIL_HOST is set")
	}
	if c.Mail.Debounce <= 0 {
		return fmt.Errorf("EMAIL_DEBOUNCE must be positive")
	}
	return nil
}

func (c *Config) validateSync() error {
	s := c.Sync
	if s.Interval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive")
	}
	if s.RatingThreshold < 1 || s.RatingThreshold > 10 {
		return fmt.Errorf("SYNC_RATING_THRESHOLD must be between 1 and 10, got %d", s.RatingThreshold)
	}
	if s.RatedLimit < 1 || s.WantedLimit < 1 || s.ProgressLimit < 1 {
		return fmt.Errorf("sync limits must be positive")
	}
	if s.BufferDuration <= 0 {
		return fmt.Errorf("SYNC_BUFFER_DURATION must be positive")
	}
	if s.ListName == "" {
		return fmt.Errorf("SYNC_LIST_NAME is required")
	}
	if s.UserConcurrency < 1 {
		return fmt.Errorf("SYNC_USER_CONCURRENCY must be positive, got %d", s.UserConcurrency)
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "memory":
		return nil
	case "badger":
		if c.Cache.Path == "" {
			return fmt.Errorf("CACHE_PATH is required for the badger backend")
		}
		return nil
	default:
		return fmt.Errorf("CACHE_BACKEND must be memory or badger, got: %s", c.Cache.Backend)
	}
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL %q is invalid", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got: %s", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL checks that rawURL is an absolute http(s) URL.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	return nil
}
