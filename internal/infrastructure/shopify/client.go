package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"

	"shopify-auth-backend/internal/domain"
	"shopify-auth-backend/internal/ports"
)

type client struct {
	apiKey      string
	apiSecret   string
	redirectURI string
	app         goshopify.App
	httpClient  *http.Client
	logger      zerolog.Logger

	// baseURL overrides the https://{shop} prefix of the token endpoint.
	// Empty in production; set by tests pointing at a fake provider.
	baseURL string
}

// NewClient creates a provider client adapter. redirectURI must match the
// redirect_uri sent on the authorize request; the provider checks it
// during the code exchange.
func NewClient(apiKey, apiSecret, redirectURI string, timeout time.Duration, logger zerolog.Logger) ports.ShopifyClient {
	return &client{
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		redirectURI: redirectURI,
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// NewClientWithBaseURL creates a client whose token endpoint lives under
// baseURL instead of the shop's own domain.
func NewClientWithBaseURL(apiKey, apiSecret, redirectURI, baseURL string, timeout time.Duration, logger zerolog.Logger) ports.ShopifyClient {
	c := NewClient(apiKey, apiSecret, redirectURI, timeout, logger).(*client)
	c.baseURL = baseURL
	return c
}

func (c *client) tokenEndpoint(shop string) string {
	if c.baseURL != "" {
		return strings.TrimSuffix(c.baseURL, "/") + "/admin/oauth/access_token"
	}
	return fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
}

// tokenResponse mirrors the provider's access_token payload. The
// associated_user block is only present for per-user (online) grants.
type tokenResponse struct {
	AccessToken    string `json:"access_token"`
	Scope          string `json:"scope"`
	AssociatedUser *struct {
		ID int64 `json:"id"`
	} `json:"associated_user"`
}

func (c *client) ExchangeCode(ctx context.Context, shop, code string) (*ports.TokenExchangeResult, error) {
	values := url.Values{}
	values.Set("client_id", c.apiKey)
	values.Set("client_secret", c.apiSecret)
	values.Set("code", code)
	values.Set("redirect_uri", c.redirectURI)
	return c.exchange(ctx, shop, values)
}

func (c *client) ExchangeSessionToken(ctx context.Context, shop, idToken string) (*ports.TokenExchangeResult, error) {
	values := url.Values{}
	values.Set("client_id", c.apiKey)
	values.Set("client_secret", c.apiSecret)
	values.Set("grant_type", "urn:ietf:params:oauth:grant-type:token-exchange")
	values.Set("subject_token", idToken)
	values.Set("subject_token_type", "urn:ietf:params:oauth:token-type:id_token")
	values.Set("requested_token_type", "urn:shopify:params:oauth:token-type:offline-access-token")
	return c.exchange(ctx, shop, values)
}

func (c *client) exchange(ctx context.Context, shop string, values url.Values) (*ports.TokenExchangeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint(shop), strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build token request: %v", domain.ErrTokenExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn().
			Str("shop", shop).
			Int("status", resp.StatusCode).
			Msg("Token endpoint returned non-2xx")
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrTokenExchange, resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrTokenExchange, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token in response", domain.ErrTokenExchange)
	}

	result := &ports.TokenExchangeResult{
		AccessToken: tr.AccessToken,
		Scope:       tr.Scope,
	}
	if tr.AssociatedUser != nil {
		result.AssociatedUserID = strconv.FormatInt(tr.AssociatedUser.ID, 10)
	}
	return result, nil
}

// createClient is a helper to create a goshopify client for report reads.
func (c *client) createClient(shop, accessToken string) (*goshopify.Client, error) {
	cl, err := goshopify.NewClient(c.app, shop, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return cl, nil
}

func (c *client) GetProducts(ctx context.Context, shop, accessToken string, limit int) ([]goshopify.Product, error) {
	cl, err := c.createClient(shop, accessToken)
	if err != nil {
		return nil, err
	}
	products, err := cl.Product.List(ctx, goshopify.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (c *client) GetCustomers(ctx context.Context, shop, accessToken string, limit int) ([]goshopify.Customer, error) {
	cl, err := c.createClient(shop, accessToken)
	if err != nil {
		return nil, err
	}
	customers, err := cl.Customer.List(ctx, goshopify.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

func (c *client) GetOrders(ctx context.Context, shop, accessToken string, limit int) ([]goshopify.Order, error) {
	cl, err := c.createClient(shop, accessToken)
	if err != nil {
		return nil, err
	}
	orders, err := cl.Order.List(ctx, goshopify.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}
