package domain

import "time"

// AccessMode distinguishes merchant-level offline tokens from short-lived
// per-user online tokens.
type AccessMode string

const (
	AccessModeOffline AccessMode = "offline"
	AccessModeOnline  AccessMode = "online"
)

// Valid reports whether the mode is one of the two known values.
func (m AccessMode) Valid() bool {
	return m == AccessModeOffline || m == AccessModeOnline
}

// Installation is one credential record for a (shop, access mode) pair.
// The raw AccessToken never leaves the trust boundary; read paths expose
// an InstallationSummary instead.
type Installation struct {
	ShopDomain       string     `json:"shop_domain" db:"shop_domain"`
	AccessMode       AccessMode `json:"access_mode" db:"access_mode"`
	AccessToken      string     `json:"-" db:"access_token"`
	Scope            *string    `json:"scope" db:"scope"`
	AssociatedUserID *string    `json:"associated_user_id" db:"associated_user_id"`
	IsActive         bool       `json:"is_active" db:"is_active"`
	InstalledAt      time.Time  `json:"installed_at" db:"installed_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// InstallationSummary is the display-safe projection of an Installation.
type InstallationSummary struct {
	ShopDomain        string     `json:"shop_domain"`
	AccessMode        AccessMode `json:"access_mode"`
	Scope             *string    `json:"scope"`
	AssociatedUserID  *string    `json:"associated_user_id"`
	MaskedAccessToken string     `json:"masked_access_token"`
	InstalledAt       time.Time  `json:"installed_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	IsActive          bool       `json:"is_active"`
}

// CallbackParams carries the provider callback query, parsed once at the
// HTTP boundary. Raw keeps every query parameter for HMAC verification.
type CallbackParams struct {
	Shop      string `validate:"required"`
	Code      string `validate:"required"`
	HMAC      string
	State     string
	Timestamp string
	Raw       map[string]string
}
