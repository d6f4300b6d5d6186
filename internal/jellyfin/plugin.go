// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package jellyfin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// TraktPluginName is the name the Trakt plugin registers under.
const TraktPluginName = "Trakt"

// Plugin is an installed server plugin.
type Plugin struct {
	ID      string `json:"Id"`
	Name    string `json:"Name"`
	Version string `json:"Version"`
}

// TraktUserConfig is one linked account of the Trakt plugin.
type TraktUserConfig struct {
	LinkedMbUserID string `json:"LinkedMbUserId"`
	AccessToken    string `json:"AccessToken,omitempty"`
}

// AuthContext pairs a media-server user with its watch-tracker token.
type AuthContext struct {
	MediaServerID string
	AccessToken   string
}

// Plugins lists the installed plugins.
func (c *Client) Plugins(ctx context.Context) ([]Plugin, error) {
	var plugins []Plugin
	if err := c.do(ctx, http.MethodGet, "/Plugins", nil, nil, &plugins); err != nil {
		return nil, err
	}
	return plugins, nil
}

func (c *Client) traktPluginID(ctx context.Context) (string, error) {
	plugins, err := c.Plugins(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range plugins {
		if p.Name == TraktPluginName {
			return p.ID, nil
		}
	}
	return "", ErrPluginNotFound
}

// UsersAuthContext returns the linked accounts of the Trakt plugin that
// hold an access token.
func (c *Client) UsersAuthContext(ctx context.Context) ([]AuthContext, error) {
	id, err := c.traktPluginID(ctx)
	if err != nil {
		return nil, err
	}

	var cfg struct {
		TraktUsers []TraktUserConfig `json:"TraktUsers"`
	}
	endpoint := "/Plugins/" + url.PathEscape(id) + "/Configuration"
	if err := c.do(ctx, http.MethodGet, endpoint, nil, nil, &cfg); err != nil {
		return nil, fmt.Errorf("trakt plugin configuration: %w", err)
	}

	contexts := make([]AuthContext, 0, len(cfg.TraktUsers))
	for _, u := range cfg.TraktUsers {
		if u.AccessToken == "" || u.LinkedMbUserID == "" {
			continue
		}
		contexts = append(contexts, AuthContext{MediaServerID: u.LinkedMbUserID, AccessToken: u.AccessToken})
	}
	return contexts, nil
}
