// Package manifestapi talks to the manifest archive service: game lookup,
// search, and the generation-status endpoint the download queue polls before
// fetching an archive.
package manifestapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/depotctl/depotctl/internal/cache"
)

// Manifest describes one downloadable archive in the remote library.
type Manifest struct {
	AppID       string `json:"app_id"`
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
	SizeBytes   int64  `json:"size_bytes"`
	UpdatedAt   int64  `json:"updated_at"`
}

// GameStatus reports whether the service is still regenerating an app's
// archive. Downloads must wait until UpdateInProgress clears.
type GameStatus struct {
	AppID            string `json:"app_id"`
	UpdateInProgress bool   `json:"update_in_progress"`
	LastUpdated      int64  `json:"last_updated"`
}

// Client calls the manifest API. Status responses are cached through the
// provided StatusCache so the readiness poll doesn't hammer the service.
type Client struct {
	BaseURL   string
	APIKey    string
	HTTP      *http.Client
	StatusTTL time.Duration

	cache *cache.StatusCache
	log   *zap.Logger
}

func NewClient(baseURL, apiKey string, statusCache *cache.StatusCache, log *zap.Logger) *Client {
	return &Client{
		BaseURL:   baseURL,
		APIKey:    apiKey,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		StatusTTL: 5 * time.Minute,
		cache:     statusCache,
		log:       log,
	}
}

// ValidateAPIKey does a cheap shape check before any network call.
func ValidateAPIKey(key string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(key)), "smm")
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, preview)
	}
	return body, nil
}

// GetManifest fetches the archive record for one app id.
func (c *Client) GetManifest(ctx context.Context, appID string) (*Manifest, error) {
	body, err := c.get(ctx, "/manifest/"+appID, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest for %s: %w", appID, err)
	}
	var m Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest for %s: %w", appID, err)
	}
	return &m, nil
}

// Search queries the remote library.
func (c *Client) Search(ctx context.Context, query string) ([]Manifest, error) {
	body, err := c.get(ctx, "/search", url.Values{"q": {query}})
	if err != nil {
		return nil, fmt.Errorf("searching library: %w", err)
	}
	var results []Manifest
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("decoding search results: %w", err)
	}
	return results, nil
}

// GetGameStatus returns the generation status for an app, or nil when the
// service can't answer. A fresh cached response short-circuits the request.
func (c *Client) GetGameStatus(ctx context.Context, appID string) *GameStatus {
	if c.cache != nil && c.cache.IsValid(appID, c.StatusTTL) {
		if blob, _, ok := c.cache.Get(appID); ok {
			var s GameStatus
			if err := json.Unmarshal(blob, &s); err == nil {
				return &s
			}
			// Corrupt cache entry: fall through and fetch fresh.
		}
	}

	body, err := c.get(ctx, "/status/"+appID, nil)
	if err != nil {
		c.log.Warn("game status request failed", zap.String("app", appID), zap.Error(err))
		return nil
	}

	var s GameStatus
	if err := json.Unmarshal(body, &s); err != nil {
		c.log.Warn("decoding game status", zap.String("app", appID), zap.Error(err))
		return nil
	}
	if c.cache != nil {
		c.cache.Put(appID, body)
	}
	return &s
}

// TestAPIKey checks the key against a known endpoint.
func (c *Client) TestAPIKey(ctx context.Context) bool {
	_, err := c.get(ctx, "/status/10", nil)
	return err == nil
}
