// Package tron reads account resources from a TRON full node over the
// TronGrid HTTP API.
package tron

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const (
	// DefaultBaseURL is the public TronGrid mainnet endpoint.
	DefaultBaseURL = "https://api.trongrid.io"
	apiKeyHeader   = "TRON-PRO-API-KEY"
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20

	pathGetAccount         = "/wallet/getaccount"
	pathGetAccountResource = "/wallet/getaccountresource"
	pathGetAccountNet      = "/wallet/getaccountnet"
)

// sunExponent scales SUN amounts into TRX.
const sunExponent = -6

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	// Requests, when set, counts calls by method and outcome.
	Requests *prometheus.CounterVec
}

// Client is a TronGrid HTTP client. It is safe for concurrent use.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	requests *prometheus.CounterVec
}

// New builds a client. The underlying connections are pooled and released by Close.
func New(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	}
	return &Client{
		baseURL:  strings.TrimRight(o.BaseURL, "/"),
		apiKey:   o.APIKey,
		http:     client,
		requests: o.Requests,
	}
}

// Close releases idle connections to the node.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

type accountResponse struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
}

type accountResourceResponse struct {
	EnergyLimit int64 `json:"EnergyLimit"`
	EnergyUsed  int64 `json:"EnergyUsed"`
}

type accountNetResponse struct {
	FreeNetLimit int64 `json:"freeNetLimit"`
	FreeNetUsed  int64 `json:"freeNetUsed"`
	NetLimit     int64 `json:"NetLimit"`
	NetUsed      int64 `json:"NetUsed"`
}

// GetEnergy returns the energy currently available to the account.
func (c *Client) GetEnergy(ctx context.Context, address string) (int64, error) {
	var res accountResourceResponse
	if err := c.call(ctx, "get_energy", pathGetAccountResource, address, true, &res); err != nil {
		return 0, err
	}
	return max(res.EnergyLimit-res.EnergyUsed, 0), nil
}

// GetBandwidth returns the free plus staked bandwidth currently available to the account.
func (c *Client) GetBandwidth(ctx context.Context, address string) (int64, error) {
	var res accountNetResponse
	// getaccountnet answers {} for accounts that never used bandwidth, so an
	// empty body is not evidence that the account is missing.
	if err := c.call(ctx, "get_bandwidth", pathGetAccountNet, address, false, &res); err != nil {
		return 0, err
	}
	free := res.FreeNetLimit - res.FreeNetUsed
	paid := res.NetLimit - res.NetUsed
	return max(free+paid, 0), nil
}

// GetBalance returns the TRX balance of the account.
func (c *Client) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	var res accountResponse
	if err := c.call(ctx, "get_balance", pathGetAccount, address, true, &res); err != nil {
		return decimal.Zero, err
	}
	return decimal.New(res.Balance, sunExponent), nil
}

// call posts the address to path and decodes the node's answer into out.
func (c *Client) call(ctx context.Context, method, path, address string, emptyIsMissing bool, out any) (err error) {
	defer func() { c.observe(method, err) }()

	addr, err := NormalizeAddress(address)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{"address": addr, "visible": true})
	if err != nil {
		return &UpstreamError{Op: method, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &UpstreamError{Op: method, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &UpstreamError{Op: method, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &UpstreamError{Op: method, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{Op: method, Err: fmt.Errorf("node returned status %d: %s", resp.StatusCode, truncate(body))}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return &UpstreamError{Op: method, Err: fmt.Errorf("decode response: %w", err)}
	}
	if raw, ok := fields["Error"]; ok {
		return &UpstreamError{Op: method, Err: fmt.Errorf("node error: %s", truncate(raw))}
	}
	if len(fields) == 0 {
		if emptyIsMissing {
			return ErrAddressNotFound
		}
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &UpstreamError{Op: method, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) observe(method string, err error) {
	if c.requests == nil {
		return
	}
	c.requests.WithLabelValues(method, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAddressNotFound):
		return "not_found"
	case errors.Is(err, ErrBadAddress):
		return "bad_address"
	default:
		return "upstream_error"
	}
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
