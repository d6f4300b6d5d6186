// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package jellyfin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tracktarr/internal/config"
	"github.com/tomtom215/tracktarr/internal/logging"
	"github.com/tomtom215/tracktarr/internal/media"
	"github.com/tomtom215/tracktarr/internal/metrics"
)

const (
	clientName    = "Tracktarr"
	clientVersion = "1.0.0"
	deviceID      = "tracktarr"
	service       = "jellyfin"
)

// API defines the media-server operations used by the sync driver and the
// registration service. Client and CircuitBreakerClient implement it.
type API interface {
	Ping(ctx context.Context) error
	ListLibraryItems(ctx context.Context) ([]media.Info, error)
	RegisterUser(ctx context.Context, name, password string) (string, error)
	ResetPassword(ctx context.Context, userID, password string) error
	UsersAuthContext(ctx context.Context) ([]AuthContext, error)
}

var _ API = (*Client)(nil)

// Client provides access to the Jellyfin REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// LibraryItem is the subset of a Jellyfin item the library pass needs.
type LibraryItem struct {
	ID                string            `json:"Id"`
	Name              string            `json:"Name"`
	ProductionYear    int               `json:"ProductionYear"`
	Type              string            `json:"Type"`
	SeriesName        string            `json:"SeriesName"`
	ParentIndexNumber *int              `json:"ParentIndexNumber"`
	IndexNumber       *int              `json:"IndexNumber"`
	ProviderIDs       map[string]string `json:"ProviderIds"`
}

// NewClient creates a client. Without a static token it authenticates with
// the configured username and password.
func NewClient(ctx context.Context, cfg *config.JellyfinConfig) (*Client, error) {
	c := &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	if c.token != "" {
		return c, nil
	}

	logging.Info().Str("url", c.baseURL).Str("username", cfg.Username).Msg("Authenticating with Jellyfin")
	var auth struct {
		AccessToken string `json:"AccessToken"`
	}
	err := c.do(ctx, http.MethodPost, "/Users/AuthenticateByName", nil, map[string]string{
		"Username": cfg.Username,
		"Pw":       cfg.Password,
	}, &auth)
	if err != nil {
		return nil, fmt.Errorf("jellyfin authentication failed: %w", err)
	}
	if auth.AccessToken == "" {
		return nil, fmt.Errorf("jellyfin authentication failed: empty access token")
	}
	c.token = auth.AccessToken
	return c, nil
}

func (c *Client) authorization() string {
	header := fmt.Sprintf(`MediaBrowser Client="%s", Device="server", DeviceId="%s", Version="%s"`, clientName, deviceID, clientVersion)
	if c.token != "" {
		header += fmt.Sprintf(`, Token="%s"`, c.token)
	}
	return header
}

// do sends a request with an optional JSON body and decodes a JSON response
// into result when result is non-nil.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", endpoint, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	if c.token != "" {
		req.Header.Set("X-Emby-Token", c.token)
	}
	req.Header.Set("Authorization", c.authorization())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordExternalRequest(service, "error", time.Since(start))
		return fmt.Errorf("jellyfin %s request failed: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordExternalRequest(service, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode jellyfin %s: %w", endpoint, err)
		}
	}
	return nil
}

// Ping tests connectivity to the server.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/System/Ping", nil, nil, nil)
}

// LibraryItems lists every movie and episode carrying an IMDb id.
func (c *Client) LibraryItems(ctx context.Context) ([]LibraryItem, error) {
	var resp struct {
		Items []LibraryItem `json:"Items"`
	}
	err := c.do(ctx, http.MethodGet, "/Items", url.Values{
		"Recursive":        {"true"},
		"hasImdbId":        {"true"},
		"includeItemTypes": {"Movie,Episode"},
		"Fields":           {"ProviderIds"},
	}, nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ListLibraryItems lists the collected library as media identities. Items
// that cannot be identified are skipped.
func (c *Client) ListLibraryItems(ctx context.Context) ([]media.Info, error) {
	items, err := c.LibraryItems(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]media.Info, 0, len(items))
	for i := range items {
		info, err := ToInfo(&items[i])
		if err != nil {
			logging.Debug().Err(err).Str("item_id", items[i].ID).Str("name", items[i].Name).Msg("Skipping library item")
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ToInfo maps a library item to a media identity. Episodes are titled with
// their series name.
func ToInfo(item *LibraryItem) (media.Info, error) {
	imdb := item.ProviderIDs["Imdb"]
	var info media.Info
	switch item.Type {
	case "Movie":
		info = media.Movie(imdb, item.Name, item.ProductionYear)
	case "Episode":
		if item.ParentIndexNumber == nil || item.IndexNumber == nil {
			return media.Info{}, media.ErrEpisodeNumbers
		}
		title := item.SeriesName
		if title == "" {
			title = item.Name
		}
		info = media.Episode(imdb, title, item.ProductionYear, *item.ParentIndexNumber, *item.IndexNumber)
	default:
		return media.Info{}, fmt.Errorf("%w: %q", media.ErrUnknownType, item.Type)
	}
	return info, info.Validate()
}

// RegisterUser creates an account and returns its id.
func (c *Client) RegisterUser(ctx context.Context, name, password string) (string, error) {
	var user struct {
		ID string `json:"Id"`
	}
	err := c.do(ctx, http.MethodPost, "/Users/New", nil, map[string]string{
		"Name":     name,
		"Password": password,
	}, &user)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		return "", ErrUserExists
	}
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// ResetPassword resets then sets the password of an account.
func (c *Client) ResetPassword(ctx context.Context, userID, password string) error {
	endpoint := "/Users/" + url.PathEscape(userID) + "/Password"
	if err := c.do(ctx, http.MethodPost, endpoint, nil, map[string]any{"ResetPassword": true}, nil); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := c.do(ctx, http.MethodPost, endpoint, nil, map[string]string{"CurrentPw": "", "NewPw": password}, nil); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}
