// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package discord

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tracktarr/internal/config"
	"github.com/tomtom215/tracktarr/internal/logging"
	"github.com/tomtom215/tracktarr/internal/metrics"
)

const (
	// DefaultAPIURL is the versioned REST base.
	DefaultAPIURL = "https://discord.com/api/v10"

	service       = "discord"
	maxBodyBytes  = 1 << 20
	threadArchive = 10080 // minutes, one week
)

// Client calls the Discord REST API as a bot.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient creates a REST client from configuration.
func NewClient(cfg *config.DiscordConfig) *Client {
	base := strings.TrimSuffix(cfg.APIURL, "/")
	if base == "" {
		base = DefaultAPIURL
	}
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &Client{
		baseURL:    base,
		token:      cfg.BotToken,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		sleep:      sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// do sends one request and decodes a 2xx body into result when non-nil.
// A 429 is retried once after the delay the server asks for.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal %s body: %w", path, err)
		}
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bot "+c.token)
		req.Header.Set("User-Agent", "DiscordBot (https://github.com/tomtom215/tracktarr, 1.0)")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordExternalRequest(service, "error", time.Since(start))
			return fmt.Errorf("discord %s %s: %w", method, path, err)
		}
		metrics.RecordExternalRequest(service, strconv.Itoa(resp.StatusCode), time.Since(start))

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read discord %s: %w", path, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt > 0 {
				return fmt.Errorf("%s %s: %w", method, path, ErrRateLimited)
			}
			delay := retryDelay(resp.Header, data)
			metrics.RateLimitWaits.WithLabelValues(service).Inc()
			logging.Ctx(ctx).Warn().Str("path", path).Dur("retry_delay", delay).Msg("Discord API rate limited, retrying once")
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(data)}
		}
		if result == nil || len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("decode discord %s: %w", path, err)
		}
		return nil
	}
}

// retryDelay prefers the JSON retry_after (fractional seconds) over the
// Retry-After header.
func retryDelay(h http.Header, body []byte) time.Duration {
	var limited struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &limited); err == nil && limited.RetryAfter > 0 {
		return time.Duration(limited.RetryAfter * float64(time.Second))
	}
	if s, err := strconv.ParseFloat(strings.TrimSpace(h.Get("Retry-After")), 64); err == nil && s > 0 {
		return time.Duration(s * float64(time.Second))
	}
	return time.Second
}

// SendMessage posts msg to a channel or thread.
func (c *Client) SendMessage(ctx context.Context, channelID string, msg MessageSend) (Message, error) {
	var out Message
	err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages", msg, &out)
	metrics.RecordMessage("admin", err)
	return out, err
}

// SendThreadMessage posts plain text to a thread.
func (c *Client) SendThreadMessage(ctx context.Context, threadID, content string) (Message, error) {
	return c.SendMessage(ctx, threadID, MessageSend{Content: content})
}

// EditMessage replaces the content and embeds of a message.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, msg MessageSend) (Message, error) {
	var out Message
	err := c.do(ctx, http.MethodPatch, "/channels/"+channelID+"/messages/"+messageID, msg, &out)
	return out, err
}

// StartThread opens a thread on a message. The thread id is returned.
func (c *Client) StartThread(ctx context.Context, channelID, messageID, name string) (Channel, error) {
	body := struct {
		Name                string `json:"name"`
		AutoArchiveDuration int    `json:"auto_archive_duration"`
	}{Name: truncate(name, 100), AutoArchiveDuration: threadArchive}

	var out Channel
	err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages/"+messageID+"/threads", body, &out)
	return out, err
}

// AddReaction reacts to a message with a unicode emoji.
func (c *Client) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	path := "/channels/" + channelID + "/messages/" + messageID + "/reactions/" + url.PathEscape(emoji) + "/@me"
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

// RemoveAllReactions clears every reaction on a message.
func (c *Client) RemoveAllReactions(ctx context.Context, channelID, messageID string) error {
	return c.do(ctx, http.MethodDelete, "/channels/"+channelID+"/messages/"+messageID+"/reactions", nil, nil)
}

// SendDM opens (or reuses) the direct-message channel with a user and
// posts msg to it.
func (c *Client) SendDM(ctx context.Context, userID string, msg MessageSend) (Message, error) {
	var dm Channel
	body := struct {
		RecipientID string `json:"recipient_id"`
	}{RecipientID: userID}
	if err := c.do(ctx, http.MethodPost, "/users/@me/channels", body, &dm); err != nil {
		metrics.RecordMessage("discord", err)
		return Message{}, fmt.Errorf("open dm channel: %w", err)
	}

	var out Message
	err := c.do(ctx, http.MethodPost, "/channels/"+dm.ID+"/messages", msg, &out)
	metrics.RecordMessage("discord", err)
	return out, err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
