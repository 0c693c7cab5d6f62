// Package api is the HTTP client for the remote follow-up data service. The
// service is a single endpoint dispatching on a `path` query parameter for
// reads and a `path` body field for writes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"followup-cli/internal/model"
)

// DefaultTimeout bounds every request when the caller's context carries no
// earlier deadline.
const DefaultTimeout = 15 * time.Second

// Client talks to the remote data service. The zero value is unusable; set
// BaseURL at minimum. Token, when set, is passed as the service's id_token
// credential on every call.
type Client struct {
	BaseURL string
	Token   string

	// HTTPClient defaults to a client with DefaultTimeout.
	HTTPClient *http.Client
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// envelope is the service's uniform response wrapper. Payload fields of every
// endpoint are flattened alongside ok/error.
type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	Today    string              `json:"today,omitempty"`
	Items    []model.Item        `json:"items,omitempty"`
	RowIndex int                 `json:"rowIndex,omitempty"`
	Dealers  []string            `json:"dealers,omitempty"`
	History  []model.RemarkEntry `json:"history,omitempty"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (envelope, error) {
	var env envelope
	if strings.TrimSpace(c.BaseURL) == "" {
		return env, fmt.Errorf("api: base URL not configured")
	}
	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("path", path)
	if c.Token != "" {
		q.Set("id_token", c.Token)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return env, fmt.Errorf("api: build %s request: %w", path, err)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return env, transientf("%s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return env, transientf("%s: server returned %s", path, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return env, fmt.Errorf("api: %s: unexpected status %s", path, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return env, transientf("%s: read response: %w", path, err)
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return env, transientf("%s: decode response: %w", path, err)
	}
	if !env.OK {
		msg := env.Error
		if msg == "" {
			msg = "request failed"
		}
		return env, transientf("%s: %s", path, msg)
	}
	return env, nil
}

// Due fetches the current set of follow-up items together with the service's
// notion of today.
func (c *Client) Due(ctx context.Context) (model.ItemSet, error) {
	env, err := c.get(ctx, "due", nil)
	if err != nil {
		return model.ItemSet{}, err
	}
	return model.ItemSet{Today: env.Today, Items: env.Items}, nil
}

// RowByDealer resolves a dealer name to the caller's tracked row, or 0 when
// the dealer is not tracked for that user.
func (c *Client) RowByDealer(ctx context.Context, email, dealer string) (int, error) {
	env, err := c.get(ctx, "rowByDealer", url.Values{"email": {email}, "dealer": {dealer}})
	if err != nil {
		return 0, err
	}
	return env.RowIndex, nil
}

// Dealers lists the dealer names assigned to the given user.
func (c *Client) Dealers(ctx context.Context, email string) ([]string, error) {
	env, err := c.get(ctx, "scotDealers", url.Values{"email": {email}})
	if err != nil {
		return nil, err
	}
	return env.Dealers, nil
}

// RemarkHistory fetches past follow-up remarks for one client, newest first.
func (c *Client) RemarkHistory(ctx context.Context, clientName string) ([]model.RemarkEntry, error) {
	env, err := c.get(ctx, "sfHistory", url.Values{"client": {clientName}})
	if err != nil {
		return nil, err
	}
	return env.History, nil
}

// Mark dispatches an outcome record. The write is fire-and-forget: the
// service acknowledges transport-level receipt only, so a nil return means
// "dispatched", not "applied". Validation failures are reported before any
// bytes leave the process.
func (c *Client) Mark(ctx context.Context, rec model.OutcomeRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("api: mark: %w", err)
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("api: base URL not configured")
	}
	payload := struct {
		Path  string `json:"path"`
		Token string `json:"id_token,omitempty"`
		model.OutcomeRecord
	}{Path: "mark", Token: c.Token, OutcomeRecord: rec}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("api: mark: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("api: mark: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return transientf("mark: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 500 {
		return transientf("mark: server returned %s", resp.Status)
	}
	return nil
}
