package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify-auth-backend/internal/application"
	"shopify-auth-backend/internal/config"
	"shopify-auth-backend/internal/domain"
	"shopify-auth-backend/internal/infrastructure/nonce"
	"shopify-auth-backend/internal/ports"
)

const (
	testShop   = "example.myshopify.com"
	testKey    = "test-api-key"
	testSecret = "test-api-secret"
)

// fakeRepo is an in-memory InstallationRepository.
type fakeRepo struct {
	rows map[string]domain.Installation
	err  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[string]domain.Installation{}}
}

func (r *fakeRepo) Upsert(ctx context.Context, params ports.UpsertInstallationParams) (*domain.Installation, error) {
	if r.err != nil {
		return nil, r.err
	}
	now := time.Now().UTC()
	key := params.ShopDomain + "|" + string(params.AccessMode)
	row, exists := r.rows[key]
	if !exists {
		row = domain.Installation{
			ShopDomain:  params.ShopDomain,
			AccessMode:  params.AccessMode,
			InstalledAt: now,
		}
	}
	row.AccessToken = params.AccessToken
	row.Scope = params.Scope
	row.AssociatedUserID = params.AssociatedUserID
	row.IsActive = true
	row.UpdatedAt = now
	r.rows[key] = row
	return &row, nil
}

func (r *fakeRepo) GetByShop(ctx context.Context, shop string) ([]domain.Installation, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []domain.Installation
	for _, row := range r.rows {
		if row.ShopDomain == shop {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccessMode < out[j].AccessMode })
	return out, nil
}

// fakeClient is a canned-response provider client.
type fakeClient struct {
	result    *ports.TokenExchangeResult
	err       error
	exchanges int
	products  []goshopify.Product
	customers []goshopify.Customer
	orders    []goshopify.Order
}

func (c *fakeClient) ExchangeCode(ctx context.Context, shop, code string) (*ports.TokenExchangeResult, error) {
	c.exchanges++
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

func (c *fakeClient) ExchangeSessionToken(ctx context.Context, shop, idToken string) (*ports.TokenExchangeResult, error) {
	c.exchanges++
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

func (c *fakeClient) GetProducts(ctx context.Context, shop, token string, limit int) ([]goshopify.Product, error) {
	return c.products, nil
}

func (c *fakeClient) GetCustomers(ctx context.Context, shop, token string, limit int) ([]goshopify.Customer, error) {
	return c.customers, nil
}

func (c *fakeClient) GetOrders(ctx context.Context, shop, token string, limit int) ([]goshopify.Order, error) {
	return c.orders, nil
}

func testConfig() *config.Config {
	return &config.Config{
		AppURL:                 "https://app.example.com",
		PostInstallRedirectURL: "https://app.example.com/dashboard",
		ShopifyAPIKey:          testKey,
		ShopifyAPISecret:       testSecret,
		Scopes:                 []string{"read_products"},
	}
}

func newTestRouter(repo *fakeRepo, client *fakeClient) chi.Router {
	cfg := testConfig()
	logger := zerolog.Nop()
	states := nonce.NewMemoryStore(time.Minute)
	auth := application.NewAuthService(repo, client, states, cfg, logger)
	reports := application.NewReportService(repo, client, logger)
	h := NewHandler(auth, reports, cfg, logger)

	r := chi.NewRouter()
	r.Get("/", h.Entry)
	r.Get("/health", h.Health)
	r.Get("/dashboard", h.Dashboard)
	r.Route("/auth", func(r chi.Router) {
		r.Get("/install", h.Install)
		r.Get("/callback", h.Callback)
		r.Get("/shops/{shop}", h.GetShop)
	})
	return r
}

func doRequest(t *testing.T, router chi.Router, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// signQuery appends a valid hmac for the test secret to a query string.
func signQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, values.Get(k)))
	}
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	values.Set("hmac", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}

func TestInstallRedirect(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeClient{})

	rec := doRequest(t, router, "/auth/install?shop="+testShop)
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, testShop, loc.Host)
	assert.Equal(t, "/admin/oauth/authorize", loc.Path)
	assert.Equal(t, testKey, loc.Query().Get("client_id"))
	assert.NotEmpty(t, loc.Query().Get("state"))
}

func TestInstallRejectsInvalidShop(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeClient{})

	rec := doRequest(t, router, "/auth/install?shop=evil.example.com")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid shop domain")
}

func TestInstallRejectsUnknownAccessMode(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeClient{})

	rec := doRequest(t, router, "/auth/install?shop="+testShop+"&access_mode=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid access mode")
	assert.NotContains(t, rec.Body.String(), "shop domain")
}

func TestCallbackSuccessRedirectsToPostInstall(t *testing.T) {
	repo := newFakeRepo()
	client := &fakeClient{result: &ports.TokenExchangeResult{
		AccessToken: "shpat_new",
		Scope:       "read_products",
	}}
	router := newTestRouter(repo, client)

	q := url.Values{}
	q.Set("shop", testShop)
	q.Set("code", "authcode")
	q.Set("timestamp", "1700000000")

	rec := doRequest(t, router, "/auth/callback?"+signQuery(q))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app.example.com/dashboard?shop="+testShop, rec.Header().Get("Location"))

	rows, err := repo.GetByShop(context.Background(), testShop)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "shpat_new", rows[0].AccessToken)
}

func TestCallbackRejectsTamperedSignature(t *testing.T) {
	repo := newFakeRepo()
	client := &fakeClient{result: &ports.TokenExchangeResult{AccessToken: "x"}}
	router := newTestRouter(repo, client)

	q := url.Values{}
	q.Set("shop", testShop)
	q.Set("code", "authcode")
	q.Set("timestamp", "1700000000")
	q.Set("hmac", strings.Repeat("0", 64))

	rec := doRequest(t, router, "/auth/callback?"+q.Encode())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, client.exchanges)

	rows, _ := repo.GetByShop(context.Background(), testShop)
	assert.Empty(t, rows)
}

func TestCallbackRejectsMissingParameters(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeClient{})

	rec := doRequest(t, router, "/auth/callback?shop="+testShop)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing required callback parameters")
}

func TestCallbackExchangeFailureMapsToBadGateway(t *testing.T) {
	client := &fakeClient{err: fmt.Errorf("%w: status 500", domain.ErrTokenExchange)}
	router := newTestRouter(newFakeRepo(), client)

	q := url.Values{}
	q.Set("shop", testShop)
	q.Set("code", "authcode")
	q.Set("timestamp", "1700000000")

	rec := doRequest(t, router, "/auth/callback?"+signQuery(q))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetShopReturnsMaskedRecords(t *testing.T) {
	repo := newFakeRepo()
	_, err := repo.Upsert(context.Background(), ports.UpsertInstallationParams{
		ShopDomain:  testShop,
		AccessMode:  domain.AccessModeOffline,
		AccessToken: "abcd1234efgh",
	})
	require.NoError(t, err)

	router := newTestRouter(repo, &fakeClient{})
	rec := doRequest(t, router, "/auth/shops/"+testShop)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Shop    string `json:"shop"`
		Records []struct {
			AccessMode        string `json:"access_mode"`
			MaskedAccessToken string `json:"masked_access_token"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, testShop, payload.Shop)
	require.Len(t, payload.Records, 1)
	assert.Equal(t, "offline", payload.Records[0].AccessMode)
	assert.Equal(t, "abcd****efgh", payload.Records[0].MaskedAccessToken)
	assert.NotContains(t, rec.Body.String(), "abcd1234efgh", "raw token must never leave the service")
}

func TestGetShopRejectsInvalidDomain(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeClient{})

	rec := doRequest(t, router, "/auth/shops/not-a-shop.example.com")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeClient{})

	rec := doRequest(t, router, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func mintSessionToken(t *testing.T) string {
	t.Helper()
	claims := jwt.MapClaims{
		"dest": "https://" + testShop,
		"aud":  testKey,
		"exp":  time.Now().Add(time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestEntryInstallTrigger(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeClient{})

	rec := doRequest(t, router, "/?shop="+testShop+"&hmac=abc&embedded=0")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/install?shop="+url.QueryEscape(testShop), rec.Header().Get("Location"))
}

func TestEntryEmbeddedFirstVisitExchangesToken(t *testing.T) {
	repo := newFakeRepo()
	client := &fakeClient{result: &ports.TokenExchangeResult{AccessToken: "shpat_exchanged"}}
	router := newTestRouter(repo, client)

	rec := doRequest(t, router, "/?embedded=1&shop="+testShop+"&host=aG9zdA&id_token="+mintSessionToken(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, client.exchanges)
	assert.Contains(t, rec.Body.String(), testShop)

	rows, _ := repo.GetByShop(context.Background(), testShop)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.AccessModeOffline, rows[0].AccessMode)
}

func TestEntryEmbeddedRepeatVisitSkipsExchange(t *testing.T) {
	repo := newFakeRepo()
	_, err := repo.Upsert(context.Background(), ports.UpsertInstallationParams{
		ShopDomain:  testShop,
		AccessMode:  domain.AccessModeOffline,
		AccessToken: "shpat_existing",
	})
	require.NoError(t, err)

	client := &fakeClient{result: &ports.TokenExchangeResult{AccessToken: "shpat_other"}}
	router := newTestRouter(repo, client)

	rec := doRequest(t, router, "/?embedded=1&shop="+testShop+"&host=aG9zdA&id_token="+mintSessionToken(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, client.exchanges, "exchange is a first-visit-only operation")

	rows, _ := repo.GetByShop(context.Background(), testShop)
	require.Len(t, rows, 1)
	assert.Equal(t, "shpat_existing", rows[0].AccessToken)
}

func TestEntryEmbeddedExchangeFailureStillServesPage(t *testing.T) {
	client := &fakeClient{err: fmt.Errorf("%w: provider down", domain.ErrTokenExchange)}
	router := newTestRouter(newFakeRepo(), client)

	rec := doRequest(t, router, "/?embedded=1&shop="+testShop+"&host=aG9zdA&id_token="+mintSessionToken(t))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "App Running")
}

func TestEntryBareVisit(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeClient{})

	rec := doRequest(t, router, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestDashboardRendersSnapshot(t *testing.T) {
	repo := newFakeRepo()
	_, err := repo.Upsert(context.Background(), ports.UpsertInstallationParams{
		ShopDomain:  testShop,
		AccessMode:  domain.AccessModeOffline,
		AccessToken: "shpat_1234567890",
	})
	require.NoError(t, err)

	client := &fakeClient{
		products:  []goshopify.Product{{Title: "Widget", Vendor: "Acme", Status: "active"}},
		customers: []goshopify.Customer{{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"}},
		orders:    []goshopify.Order{{Name: "#1001", Email: "jane@example.com", FinancialStatus: "paid"}},
	}
	router := newTestRouter(repo, client)

	rec := doRequest(t, router, "/dashboard?shop="+testShop)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, testShop)
	assert.Contains(t, body, "Widget")
	assert.Contains(t, body, "Jane Doe")
	assert.Contains(t, body, "#1001")
	assert.NotContains(t, body, "shpat_1234567890", "raw token must not render")
}

func TestDashboardUnknownShop(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeClient{})

	rec := doRequest(t, router, "/dashboard?shop=unknown.myshopify.com")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
