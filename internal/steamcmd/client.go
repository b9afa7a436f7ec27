// Package steamcmd fetches per-app depot metadata from the public SteamCMD
// info API.
package steamcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.steamcmd.net"

// Client is a thin read-only client for the depot-metadata API. Failures are
// logged and reported as a nil result; callers treat nil as "metadata
// unavailable" and fall back. Retrying, if wanted, is the caller's business.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	log     *zap.Logger
}

func NewClient(log *zap.Logger) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// GetDepotInfo fetches the depot tree for one app id. It returns nil on any
// transport failure, non-success status or malformed body.
func (c *Client) GetDepotInfo(ctx context.Context, appID string) *DepotInfoResponse {
	url := fmt.Sprintf("%s/v1/info/%s", c.BaseURL, appID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.log.Error("building depot info request", zap.String("app", appID), zap.Error(err))
		return nil
	}

	c.log.Debug("fetching depot info", zap.String("app", appID))
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.log.Warn("depot info request failed", zap.String("app", appID), zap.Error(err))
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("depot info API returned non-success",
			zap.String("app", appID), zap.Int("status", resp.StatusCode))
		return nil
	}

	var info DepotInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		c.log.Warn("decoding depot info", zap.String("app", appID), zap.Error(err))
		return nil
	}

	c.log.Info("retrieved depot info", zap.String("app", appID))
	return &info
}

// GetGameName returns the app's display name, or "" when metadata is
// unavailable.
func (c *Client) GetGameName(ctx context.Context, appID string) string {
	info := c.GetDepotInfo(ctx, appID)
	if app, ok := info.App(appID); ok {
		return app.Common.Name
	}
	return ""
}
