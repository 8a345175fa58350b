package ports

import (
	"context"

	"shopify-auth-backend/internal/domain"
)

// UpsertInstallationParams carries the fields written on every successful
// token exchange.
type UpsertInstallationParams struct {
	ShopDomain       string
	AccessMode       domain.AccessMode
	AccessToken      string
	Scope            *string
	AssociatedUserID *string
}

// InstallationRepository defines the interface for credential persistence.
// Implementations must keep at most one row per (shop_domain, access_mode)
// pair and serialize concurrent upserts for the same key.
type InstallationRepository interface {
	// Upsert creates the row on first install and overwrites
	// token/scope/user on re-install, reactivating the record and
	// refreshing updated_at. installed_at is set once and never changed.
	Upsert(ctx context.Context, params UpsertInstallationParams) (*domain.Installation, error)

	// GetByShop returns every credential record for a shop, ordered by
	// access_mode ascending (offline before online).
	GetByShop(ctx context.Context, shopDomain string) ([]domain.Installation, error)
}
