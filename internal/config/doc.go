// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

/*
Package config loads the Tracktarr configuration.

Configuration is layered with Koanf v2, each layer overriding the previous:

 1. built-in defaults (defaultConfig)
 2. an optional YAML file: $CONFIG_PATH, else config.yaml, config.yml or
    /etc/tracktarr/config.yaml
 3. environment variables, through an explicit name mapping

Only mapped environment variables are read. The main ones:

	PORT                   server.port (default 8080)
	DATABASE_URL           database.url (required)
	TRAKT_HOST             trakt.host (default api.trakt.tv)
	TRAKT_CLIENT_ID        trakt.client_id (required)
	TRAKT_CLIENT_SECRET    trakt.client_secret
	JELLYFIN_URL           jellyfin.url (required)
	JELLYFIN_TOKEN         jellyfin.token
	JELLYFIN_USERNAME      jellyfin.username (with JELLYFIN_PASSWORD, when no token)
	DISCORD_BOT_TOKEN      discord.bot_token (required)
	DISCORD_CHANNEL_ID     discord.channel_id (required)
	DISCORD_ADMIN_IDS      discord.admin_ids, comma separated (required)
	EMAIL_HOST             mail.host; email delivery is disabled when empty
	EMAIL_DEBOUNCE         mail.debounce (default 60s)
	SYNC_INTERVAL          sync.interval (default 1m)
	SYNC_RATING_THRESHOLD  sync.rating_threshold (default 10)
	CACHE_BACKEND          cache.backend, memory or badger
	LOG_LEVEL, LOG_FORMAT  logging.level, logging.format

Load validates the result; a configuration that fails Validate is never
returned.
*/
package config
