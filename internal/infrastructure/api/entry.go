package api

import (
	"html/template"
	"net/http"
	"net/url"
)

// embeddedPage bootstraps App Bridge inside the admin iframe so the
// loading spinner stops, and shows the connected store.
var embeddedPage = template.Must(template.New("embedded").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Shopify App</title>
	<script src="https://cdn.shopify.com/shopifycloud/app-bridge.js" crossorigin="anonymous"></script>
	<style>
		body { margin: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
		       display: flex; align-items: center; justify-content: center; min-height: 100vh; background: #f6f6f7; }
		.card { background: #fff; border-radius: 12px; box-shadow: 0 4px 24px rgba(0,0,0,0.08);
		        padding: 2.5rem 3rem; text-align: center; max-width: 420px; }
		h1 { color: #008060; margin-bottom: .5rem; }
		p { color: #555; }
	</style>
</head>
<body>
	<div class="card">
		<h1>App Running</h1>
		<p>Backend is running successfully.</p>
		{{if .Shop}}<p><strong>Store:</strong> {{.Shop}}</p>{{end}}
	</div>
	<script>
		(function () {
			try {
				var apiKey = {{.APIKey}};
				var host = {{.Host}};
				if (!host) { return; }
				shopify.createApp({ apiKey: apiKey, host: host });
			} catch (err) {
				console.error("[AppBridge] Init error:", err);
			}
		})();
	</script>
</body>
</html>
`))

type embeddedPageData struct {
	Shop   string
	Host   string
	APIKey string
}

// Entry is the smart entry point at GET /. It tells two request shapes
// apart:
//
//  1. Install trigger from the App Store or an install link:
//     shop + hmac present, embedded != "1". Redirected into the OAuth
//     flow at /auth/install.
//  2. Embedded app load (managed installation): the provider sends an
//     id_token on every page load. It is exchanged for an offline token
//     on the first visit only, when no credential exists yet.
func (h *Handler) Entry(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	shop := q.Get("shop")
	embedded := q.Get("embedded")
	hmacParam := q.Get("hmac")

	if shop != "" && hmacParam != "" && embedded != "1" {
		h.logger.Info().Str("shop", shop).Msg("Install trigger detected, redirecting into OAuth flow")
		http.Redirect(w, r, "/auth/install?shop="+url.QueryEscape(shop), http.StatusFound)
		return
	}

	idToken := q.Get("id_token")
	if shop != "" && idToken != "" {
		installed, err := h.auth.HasInstallation(r.Context(), shop)
		switch {
		case err != nil:
			h.logger.Error().Err(err).Str("shop", shop).Msg("Installation lookup failed on embedded load")
		case installed:
			h.logger.Debug().Str("shop", shop).Msg("Credential already stored, skipping token exchange")
		default:
			if _, err := h.auth.ExchangeSessionToken(r.Context(), shop, idToken); err != nil {
				// The provider re-delivers the session token on the next
				// load, so the page is still served.
				h.logger.Error().Err(err).Str("shop", shop).Msg("Session token exchange failed on embedded load")
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := embeddedPage.Execute(w, embeddedPageData{
		Shop:   shop,
		Host:   q.Get("host"),
		APIKey: h.cfg.ShopifyAPIKey,
	}); err != nil {
		h.logger.Error().Err(err).Msg("Failed to render embedded page")
	}
}
