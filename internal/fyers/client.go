// Package fyers is the HTTP client for the Fyers v3 data API: minute
// candle history and the refresh-token exchange. It reports responses
// verbatim; classifying an outcome is the ingest layer's job.
package fyers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/agnivesh13/Price-Feed-Parser/internal/core"
)

const (
	// DefaultHistoryURL is the candle history endpoint.
	DefaultHistoryURL = "https://api-t1.fyers.in/data/history"
	// DefaultRefreshURL is the refresh-token exchange endpoint.
	DefaultRefreshURL = "https://api-t1.fyers.in/api/v3/validate-refresh-token"

	apiVersion     = "3"
	userAgent      = "price-feed-parser/1.0"
	requestTimeout = 30 * time.Second
)

// Client talks to the Fyers data API.
type Client struct {
	http       *http.Client
	historyURL string
	refreshURL string
}

// New creates a client. Empty URLs fall back to the production endpoints.
func New(historyURL, refreshURL string) *Client {
	if historyURL == "" {
		historyURL = DefaultHistoryURL
	}
	if refreshURL == "" {
		refreshURL = DefaultRefreshURL
	}
	return &Client{
		http:       &http.Client{Timeout: requestTimeout},
		historyURL: historyURL,
		refreshURL: refreshURL,
	}
}

// HistoryReply carries one verbatim provider response. The provider
// reports some application-level failures as s == "error" inside an
// HTTP 200, so Body matters even on success statuses.
type HistoryReply struct {
	Status     int
	Body       []byte
	RetryAfter time.Duration // parsed Retry-After hint, 0 when absent
}

// History performs one candle history request with the given credential
// snapshot. A non-nil error means the request never produced an HTTP
// response (transport failure or timeout).
func (c *Client) History(ctx context.Context, creds core.CredentialSet, p core.HistoryParams) (*HistoryReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.historyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building history request: %w", err)
	}

	q := req.URL.Query()
	q.Set("symbol", p.Symbol)
	q.Set("resolution", p.Resolution)
	q.Set("date_format", "1")
	q.Set("range_from", p.RangeFrom)
	q.Set("range_to", p.RangeTo)
	q.Set("cont_flag", "1")
	req.URL.RawQuery = q.Encode()

	// The API wants "client_id:access_token", not a Bearer token.
	req.Header.Set("Authorization", creds.ClientID+":"+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("version", apiVersion)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading history response: %w", err)
	}

	return &HistoryReply{
		Status:     resp.StatusCode,
		Body:       body,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}, nil
}

type refreshRequest struct {
	GrantType    string `json:"grant_type"`
	AppIDHash    string `json:"appIdHash"`
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	S           string `json:"s"`
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
}

// RefreshToken exchanges the refresh token for a new access token.
// Implements credentials.Refresher.
func (c *Client) RefreshToken(ctx context.Context, creds core.CredentialSet) (string, error) {
	hash := sha256.Sum256([]byte(creds.ClientID + ":" + creds.AppSecret))
	payload, err := json.Marshal(refreshRequest{
		GrantType:    "refresh_token",
		AppIDHash:    hex.EncodeToString(hash[:]),
		RefreshToken: creds.RefreshToken,
	})
	if err != nil {
		return "", fmt.Errorf("encoding refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("refresh endpoint returned status %d: %s", resp.StatusCode, body)
	}

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding refresh response: %w", err)
	}
	if out.S != "ok" || out.AccessToken == "" {
		return "", fmt.Errorf("refresh rejected: s=%q message=%q", out.S, out.Message)
	}

	return out.AccessToken, nil
}

// parseRetryAfter handles the delay-seconds form of the header. The
// HTTP-date form is rare on this API and is treated as absent.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
