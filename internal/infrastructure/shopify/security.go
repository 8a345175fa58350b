package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var shopDomainRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-]*\.myshopify\.com$`)

// IsValidShopDomain reports whether shop is a well-formed myshopify.com
// subdomain. Used as the input gate before any lookup, external call, or
// redirect construction.
func IsValidShopDomain(shop string) bool {
	return shopDomainRegex.MatchString(shop)
}

// VerifyCallbackHMAC checks the signature Shopify attaches to OAuth
// callbacks: all parameters except hmac and signature, sorted by key,
// percent-decoded, joined as key=value pairs with &, signed with
// HMAC-SHA256 under the app secret and hex-encoded.
//
// Returns false when the hmac parameter is absent. The comparison is
// constant-time.
func VerifyCallbackHMAC(params map[string]string, secret string) bool {
	supplied, ok := params["hmac"]
	if !ok || supplied == "" {
		return false
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		v := params[k]
		if decoded, err := url.PathUnescape(v); err == nil {
			v = decoded
		}
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, v))
	}
	message := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	computed := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(computed), []byte(supplied))
}

// MaskToken returns the display-safe form of a secret: first and last
// four characters with asterisks between, or all asterisks for tokens of
// eight characters or fewer.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
