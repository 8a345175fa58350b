package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"shopify-auth-backend/internal/config"
	"shopify-auth-backend/internal/domain"
	"shopify-auth-backend/internal/infrastructure/shopify"
	"shopify-auth-backend/internal/ports"
)

// AuthService orchestrates the OAuth installation flow: install-URL
// construction, callback verification and code exchange, and the
// session-token exchange used by embedded managed installations.
//
// Verification always precedes the external exchange, and the exchange
// always precedes persistence; a failure at any step leaves the store
// untouched.
type AuthService struct {
	repo   ports.InstallationRepository
	client ports.ShopifyClient
	states ports.StateStore
	cfg    *config.Config
	logger zerolog.Logger
}

// NewAuthService creates the OAuth flow controller.
func NewAuthService(
	repo ports.InstallationRepository,
	client ports.ShopifyClient,
	states ports.StateStore,
	cfg *config.Config,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		repo:   repo,
		client: client,
		states: states,
		cfg:    cfg,
		logger: logger,
	}
}

// BuildInstallURL constructs the provider authorization URL for a shop.
// A single-use state nonce is generated and stored for the callback.
func (s *AuthService) BuildInstallURL(ctx context.Context, shop string, mode domain.AccessMode) (string, error) {
	if !shopify.IsValidShopDomain(shop) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidShopDomain, shop)
	}
	if !mode.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidAccessMode, mode)
	}

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := hex.EncodeToString(stateBytes)

	if err := s.states.Save(ctx, state, shop); err != nil {
		return "", fmt.Errorf("save state: %w", err)
	}

	q := url.Values{}
	q.Set("client_id", s.cfg.ShopifyAPIKey)
	q.Set("scope", strings.Join(s.cfg.Scopes, ","))
	q.Set("redirect_uri", s.cfg.RedirectURI())
	q.Set("state", state)
	if mode == domain.AccessModeOnline {
		q.Set("grant_options[]", "per-user")
	}

	authURL := fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, q.Encode())

	s.logger.Info().
		Str("shop", shop).
		Str("access_mode", string(mode)).
		Msg("Built install redirect URL")

	return authURL, nil
}

// HandleCallback verifies a provider callback and, only after the
// signature checks out, exchanges the authorization code and persists the
// resulting credential. The persisted access mode is derived from the
// exchange response: an associated user means a per-user (online) grant.
func (s *AuthService) HandleCallback(ctx context.Context, params domain.CallbackParams) (string, domain.AccessMode, error) {
	if !shopify.IsValidShopDomain(params.Shop) {
		s.logger.Warn().Str("shop", params.Shop).Msg("Callback rejected: invalid shop domain")
		return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidShopDomain, params.Shop)
	}

	if !shopify.VerifyCallbackHMAC(params.Raw, s.cfg.ShopifyAPISecret) {
		s.logger.Warn().Str("shop", params.Shop).Msg("Callback rejected: hmac verification failed")
		return "", "", domain.ErrInvalidHMAC
	}

	if params.State != "" {
		boundShop, found, err := s.states.Consume(ctx, params.State)
		if err != nil {
			return "", "", fmt.Errorf("consume state: %w", err)
		}
		if !found || boundShop != params.Shop {
			s.logger.Warn().Str("shop", params.Shop).Msg("Callback rejected: state mismatch")
			return "", "", domain.ErrStateMismatch
		}
	}

	result, err := s.client.ExchangeCode(ctx, params.Shop, params.Code)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", params.Shop).Msg("Authorization code exchange failed")
		return "", "", err
	}

	mode := domain.AccessModeOffline
	var userID *string
	if result.AssociatedUserID != "" {
		mode = domain.AccessModeOnline
		userID = &result.AssociatedUserID
	}

	installation, err := s.repo.Upsert(ctx, ports.UpsertInstallationParams{
		ShopDomain:       params.Shop,
		AccessMode:       mode,
		AccessToken:      result.AccessToken,
		Scope:            optional(result.Scope),
		AssociatedUserID: userID,
	})
	if err != nil {
		return "", "", err
	}

	s.logger.Info().
		Str("shop", installation.ShopDomain).
		Str("access_mode", string(installation.AccessMode)).
		Msg("Installation callback completed")

	return installation.ShopDomain, installation.AccessMode, nil
}

// ExchangeSessionToken handles the embedded managed-installation path:
// the session token supplied on page load is verified locally and then
// exchanged for an offline access token. Callers are expected to check
// GetByShop first and invoke this only when no credential exists; the
// controller does not re-check.
func (s *AuthService) ExchangeSessionToken(ctx context.Context, shop, idToken string) (*domain.Installation, error) {
	if !shopify.IsValidShopDomain(shop) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidShopDomain, shop)
	}
	if idToken == "" {
		return nil, fmt.Errorf("%w: empty token", domain.ErrInvalidSessionToken)
	}
	if err := shopify.VerifySessionToken(idToken, shop, s.cfg.ShopifyAPIKey, s.cfg.ShopifyAPISecret); err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Session token verification failed")
		return nil, err
	}

	result, err := s.client.ExchangeSessionToken(ctx, shop, idToken)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Session token exchange failed")
		return nil, err
	}

	installation, err := s.repo.Upsert(ctx, ports.UpsertInstallationParams{
		ShopDomain:  shop,
		AccessMode:  domain.AccessModeOffline,
		AccessToken: result.AccessToken,
		Scope:       optional(result.Scope),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("shop", shop).Msg("Session token exchanged for offline access token")
	return installation, nil
}

// ListInstallations returns the masked credential summaries for a shop.
func (s *AuthService) ListInstallations(ctx context.Context, shop string) ([]domain.InstallationSummary, error) {
	if !shopify.IsValidShopDomain(shop) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidShopDomain, shop)
	}

	installations, err := s.repo.GetByShop(ctx, shop)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.InstallationSummary, 0, len(installations))
	for _, inst := range installations {
		summaries = append(summaries, domain.InstallationSummary{
			ShopDomain:        inst.ShopDomain,
			AccessMode:        inst.AccessMode,
			Scope:             inst.Scope,
			AssociatedUserID:  inst.AssociatedUserID,
			MaskedAccessToken: shopify.MaskToken(inst.AccessToken),
			InstalledAt:       inst.InstalledAt,
			UpdatedAt:         inst.UpdatedAt,
			IsActive:          inst.IsActive,
		})
	}
	return summaries, nil
}

// HasInstallation reports whether any credential exists for the shop.
// The embedded entry point uses it to keep the session-token exchange a
// first-visit-only operation.
func (s *AuthService) HasInstallation(ctx context.Context, shop string) (bool, error) {
	installations, err := s.repo.GetByShop(ctx, shop)
	if err != nil {
		return false, err
	}
	return len(installations) > 0, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
