package ports

import (
	"context"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// TokenExchangeResult is the provider's answer to a grant exchange.
// AssociatedUserID is empty for offline tokens.
type TokenExchangeResult struct {
	AccessToken      string
	Scope            string
	AssociatedUserID string
}

// ShopifyClient defines the outbound operations against the provider.
type ShopifyClient interface {
	// ExchangeCode trades an authorization code for an access token.
	// The result carries an associated user for per-user (online) grants.
	ExchangeCode(ctx context.Context, shop, code string) (*TokenExchangeResult, error)

	// ExchangeSessionToken trades an embedded session token (id_token)
	// for an offline access token via the token-exchange grant.
	ExchangeSessionToken(ctx context.Context, shop, idToken string) (*TokenExchangeResult, error)

	// Report reads used by the dashboard.
	GetProducts(ctx context.Context, shop, accessToken string, limit int) ([]shopify.Product, error)
	GetCustomers(ctx context.Context, shop, accessToken string, limit int) ([]shopify.Customer, error)
	GetOrders(ctx context.Context, shop, accessToken string, limit int) ([]shopify.Order, error)
}

// StateStore holds single-use OAuth state nonces between the install
// redirect and the callback.
type StateStore interface {
	// Save binds a state nonce to the shop that requested it.
	Save(ctx context.Context, state, shop string) error

	// Consume returns the shop bound to the nonce and invalidates it.
	// An unknown or expired nonce yields found=false, not an error.
	Consume(ctx context.Context, state string) (shop string, found bool, err error)
}
