// Package panel talks to x-ui access panels. Deployed panels differ in which
// API prefix they expose, so every call walks a list of known endpoint
// layouts until one answers with something other than 404.
package panel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"nyxvpn/internal/application/subscription"
	sharedConfig "nyxvpn/internal/shared/config"
	"nyxvpn/internal/shared/logger"
)

const requestTimeout = 15 * time.Second

// Client provisions credentials on a single panel deployment. Sessions are
// cookie based and short lived on the panel side, so every logical operation
// logs in fresh rather than reusing a cookie that may have expired.
type Client struct {
	httpClient *http.Client
	base       string // scheme://host
	basePath   string // path prefix the panel is mounted under, may be empty
	username   string
	password   string
	inboundID  int
	subURL     string
	landingURL string
	logger     logger.Interface
}

func NewClient(cfg sharedConfig.PanelConfig, log logger.Interface) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid panel base url %q", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout, Jar: jar},
		base:       u.Scheme + "://" + u.Host,
		basePath:   strings.TrimRight(u.Path, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		inboundID:  cfg.InboundID,
		subURL:     strings.TrimRight(cfg.SubURL, "/"),
		landingURL: strings.TrimRight(cfg.LandingURL, "/"),
		logger:     log,
	}, nil
}

// Authenticate performs the form login. The session cookie lands in the jar.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{
		"username": {c.username},
		"password": {c.password},
	}

	status, body, err := c.postForm(ctx, c.base+c.basePath+"/login", form)
	if err != nil {
		return fmt.Errorf("panel login request failed: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: login returned status %d", ErrAuthFailed, status)
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil || !resp.Success {
		return fmt.Errorf("%w: %s", ErrAuthFailed, resp.Msg)
	}

	c.logger.Debugw("panel session established", "panel", c.base)
	return nil
}

// CreateCredential registers a new client on the configured inbound. The
// panel wants the client list as a JSON document inside a form field.
func (c *Client) CreateCredential(ctx context.Context, accountKey string, expiresAt time.Time) (subscription.Credential, error) {
	if err := c.Authenticate(ctx); err != nil {
		return subscription.Credential{}, err
	}

	clientID := uuid.NewString()
	subID := strings.ReplaceAll(uuid.NewString(), "-", "")

	settings, err := json.Marshal(clientSettings{
		Clients: []inboundClient{{
			ID:         clientID,
			Email:      accountKey,
			Enable:     true,
			ExpiryTime: expiresAt.UnixMilli(),
			TotalGB:    0,
			LimitIP:    0,
			SubID:      subID,
		}},
	})
	if err != nil {
		return subscription.Credential{}, fmt.Errorf("failed to marshal client settings: %w", err)
	}

	form := url.Values{
		"id":       {fmt.Sprintf("%d", c.inboundID)},
		"settings": {string(settings)},
	}

	resp, err := c.doWithFallback(ctx, addClientPaths, func(ctx context.Context, endpoint string) (int, []byte, error) {
		return c.postForm(ctx, endpoint, form)
	})
	if err != nil {
		return subscription.Credential{}, err
	}
	if !resp.Success {
		return subscription.Credential{}, &ProvisioningError{Endpoint: "addClient", Message: resp.Msg}
	}

	c.logger.Infow("panel credential created",
		"panel", c.base, "account", accountKey, "sub_id", subID)
	return subscription.Credential{SubID: subID, ExpiresAt: expiresAt.UTC()}, nil
}

// FindCredential scans the panel's inbounds for a client registered under the
// account key. Disabled or already-expired clients count as absent.
func (c *Client) FindCredential(ctx context.Context, accountKey string) (subscription.Credential, bool, error) {
	if err := c.Authenticate(ctx); err != nil {
		return subscription.Credential{}, false, err
	}

	resp, err := c.doWithFallback(ctx, listInboundPaths, func(ctx context.Context, endpoint string) (int, []byte, error) {
		return c.get(ctx, endpoint)
	})
	if err != nil {
		return subscription.Credential{}, false, err
	}
	if !resp.Success {
		return subscription.Credential{}, false, &ProvisioningError{Endpoint: "list", Message: resp.Msg}
	}

	inbounds, err := decodeInbounds(resp.payload())
	if err != nil {
		return subscription.Credential{}, false, fmt.Errorf("failed to decode inbound list: %w", err)
	}

	now := time.Now().UTC()
	for _, inbound := range inbounds {
		if inbound.ID != c.inboundID {
			continue
		}
		for _, cl := range inbound.clients() {
			if cl.Email != accountKey {
				continue
			}
			if !cl.Enable || cl.SubID == "" || cl.ExpiryTime <= 0 {
				return subscription.Credential{}, false, nil
			}
			expires := time.UnixMilli(cl.ExpiryTime).UTC()
			if expires.Before(now) {
				return subscription.Credential{}, false, nil
			}
			return subscription.Credential{SubID: cl.SubID, ExpiresAt: expires}, true, nil
		}
	}
	return subscription.Credential{}, false, nil
}

// SubscriptionLink prefers the dedicated public subscription host when one
// is configured and falls back to the panel's own address.
func (c *Client) SubscriptionLink(subID string) string {
	if c.subURL != "" {
		return c.subURL + "/sub/" + subID
	}
	return c.base + c.basePath + "/sub/" + subID
}

// Instructions returns setup guidance for this deployment. Panels fronted by
// a landing page point there; the rest hand out the raw link.
func (c *Client) Instructions(subID string) string {
	if c.landingURL != "" {
		return fmt.Sprintf("Open %s/%s and follow the setup steps for your device.", c.landingURL, subID)
	}
	return fmt.Sprintf("Add %s to your VPN client as a subscription URL.", c.SubscriptionLink(subID))
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, endpoint string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
