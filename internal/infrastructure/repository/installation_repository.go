package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"shopify-auth-backend/internal/domain"
	"shopify-auth-backend/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS shop_installations (
	shop_domain        TEXT      NOT NULL,
	access_mode        TEXT      NOT NULL,
	access_token       TEXT      NOT NULL,
	scope              TEXT,
	associated_user_id TEXT,
	is_active          BOOLEAN   NOT NULL DEFAULT TRUE,
	installed_at       TIMESTAMP NOT NULL,
	updated_at         TIMESTAMP NOT NULL,
	PRIMARY KEY (shop_domain, access_mode)
)`

// InstallationRepository implements credential persistence on a relational
// table. Queries are written with ? placeholders and rebound for the
// active driver, so the same code runs on sqlite3 and postgres.
type InstallationRepository struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// NewInstallationRepository creates a SQL-backed installation repository.
func NewInstallationRepository(db *sqlx.DB, logger zerolog.Logger) *InstallationRepository {
	return &InstallationRepository{db: db, logger: logger}
}

// Migrate creates the shop_installations table if it does not exist.
func (r *InstallationRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: migrate shop_installations: %v", domain.ErrStorage, err)
	}
	return nil
}

// Upsert writes the credential record for a (shop, mode) pair in a single
// statement. The composite primary key plus ON CONFLICT keeps concurrent
// writes for the same key serialized with no partial row visible;
// installed_at survives the update untouched. RETURNING makes the
// returned row the one this statement wrote, not a later writer's.
func (r *InstallationRepository) Upsert(ctx context.Context, params ports.UpsertInstallationParams) (*domain.Installation, error) {
	now := time.Now().UTC()

	query := r.db.Rebind(`
		INSERT INTO shop_installations
			(shop_domain, access_mode, access_token, scope, associated_user_id, is_active, installed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (shop_domain, access_mode) DO UPDATE SET
			access_token       = excluded.access_token,
			scope              = excluded.scope,
			associated_user_id = excluded.associated_user_id,
			is_active          = excluded.is_active,
			updated_at         = excluded.updated_at
		RETURNING shop_domain, access_mode, access_token, scope, associated_user_id, is_active, installed_at, updated_at`)

	var installation domain.Installation
	err := r.db.GetContext(ctx, &installation, query,
		params.ShopDomain,
		params.AccessMode,
		params.AccessToken,
		params.Scope,
		params.AssociatedUserID,
		true,
		now,
		now,
	)
	if err != nil {
		r.logger.Error().Err(err).
			Str("shop", params.ShopDomain).
			Str("access_mode", string(params.AccessMode)).
			Msg("Failed to upsert installation")
		return nil, fmt.Errorf("%w: upsert installation: %v", domain.ErrStorage, err)
	}

	r.logger.Info().
		Str("shop", params.ShopDomain).
		Str("access_mode", string(params.AccessMode)).
		Time("installed_at", installation.InstalledAt).
		Msg("Installation upserted")

	return &installation, nil
}

// GetByShop returns all credential records for a shop, offline first.
func (r *InstallationRepository) GetByShop(ctx context.Context, shopDomain string) ([]domain.Installation, error) {
	query := r.db.Rebind(`
		SELECT shop_domain, access_mode, access_token, scope, associated_user_id, is_active, installed_at, updated_at
		FROM shop_installations
		WHERE shop_domain = ?
		ORDER BY access_mode ASC`)

	installations := []domain.Installation{}
	if err := r.db.SelectContext(ctx, &installations, query, shopDomain); err != nil {
		return nil, fmt.Errorf("%w: get installations for %s: %v", domain.ErrStorage, shopDomain, err)
	}
	return installations, nil
}
