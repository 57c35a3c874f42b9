// Package daraja talks to the Safaricom Daraja gateway: OAuth token
// exchange and the STK push request that triggers a payment prompt on the
// payer's handset.
package daraja

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abanremit/mpesa-relay/internal/domain"
	"github.com/abanremit/mpesa-relay/internal/logging"
)

type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
	Timeout        time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// AccessToken exchanges the consumer key/secret for a short-lived bearer
// token. Tokens are cached until shortly before expiry; correctness does
// not depend on the cache, a fresh exchange per call is equally valid.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	url := c.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("AccessToken: build request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("AccessToken: %w: %w", domain.ErrUpstreamAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("AccessToken: %w: status %d: %s", domain.ErrUpstreamAuth, resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("AccessToken: decode: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("AccessToken: %w: empty token in response", domain.ErrUpstreamAuth)
	}

	ttl := 3599 * time.Second
	if secs, err := time.ParseDuration(tr.ExpiresIn + "s"); err == nil && secs > 0 {
		ttl = secs
	}

	c.mu.Lock()
	c.token = tr.AccessToken
	c.tokenExpiry = c.now().Add(ttl - 30*time.Second)
	c.mu.Unlock()

	return tr.AccessToken, nil
}

// STKPush asks the gateway to prompt phone for amount, directing the
// asynchronous result to the configured callback URL.
func (c *Client) STKPush(ctx context.Context, phone string, amount decimal.Decimal, accountRef string) (*STKPushResponse, error) {
	log := logging.FromContext(ctx)

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("STKPush: %w", err)
	}

	pw, timestamp := password(c.cfg.Shortcode, c.cfg.Passkey, c.now())
	payload := stkPushRequest{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          pw,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount.String(),
		PartyA:            phone,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   "Wallet deposit",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("STKPush: marshal: %w", err)
	}

	url := c.cfg.BaseURL + "/mpesa/stkpush/v1/processrequest"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("STKPush: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := c.now()
	log.Info("stk push sent", "phone", phone, "amount", amount)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("STKPush: %w: %w", domain.ErrGatewayRejected, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("STKPush: read response: %w", err)
	}

	log.Info("stk push response received",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	var pushResp STKPushResponse
	if err := json.Unmarshal(respBody, &pushResp); err != nil {
		return nil, fmt.Errorf("STKPush: %w: status %d: %s", domain.ErrGatewayRejected, resp.StatusCode, string(respBody))
	}

	if resp.StatusCode != http.StatusOK || pushResp.ResponseCode != "0" {
		msg := pushResp.ResponseDescription
		if pushResp.ErrorMessage != "" {
			msg = pushResp.ErrorMessage
		}
		return nil, fmt.Errorf("STKPush: %w: %s", domain.ErrGatewayRejected, msg)
	}

	return &pushResp, nil
}
