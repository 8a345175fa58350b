package shopify

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"shopify-auth-backend/internal/domain"
)

type sessionTokenClaims struct {
	Dest string `json:"dest"`
	jwt.RegisteredClaims
}

// VerifySessionToken validates an embedded-app session token before it is
// exchanged: HS256 signature under the app secret, audience equal to the
// app's API key, and a dest claim naming the expected shop.
func VerifySessionToken(idToken, shop, apiKey, apiSecret string) error {
	claims := &sessionTokenClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(apiSecret), nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience(apiKey),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSessionToken, err)
	}

	dest := strings.TrimPrefix(claims.Dest, "https://")
	if dest != shop {
		return fmt.Errorf("%w: dest claim %q does not match shop %q",
			domain.ErrInvalidSessionToken, claims.Dest, shop)
	}
	return nil
}
