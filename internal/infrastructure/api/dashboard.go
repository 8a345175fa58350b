package api

import (
	"html/template"
	"net/http"
)

var dashboardPage = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>{{.ShopDomain}} — Dashboard</title>
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
		       background: #f6f6f7; margin: 0; padding: 2rem; color: #202223; }
		h1 { color: #008060; }
		.meta { color: #555; margin-bottom: 2rem; }
		section { background: #fff; border-radius: 8px; padding: 1rem 1.5rem; margin-bottom: 1.5rem;
		          box-shadow: 0 1px 4px rgba(0,0,0,0.06); }
		table { width: 100%; border-collapse: collapse; }
		th, td { text-align: left; padding: .5rem .75rem; border-bottom: 1px solid #eee; }
		.empty { color: #999; font-style: italic; padding: .5rem .75rem; }
	</style>
</head>
<body>
	<h1>{{.ShopDomain}}</h1>
	<div class="meta">Token: <code>{{.MaskedToken}}</code></div>

	<section>
		<h2>Products ({{len .Products}})</h2>
		{{if .Products}}
		<table>
			<tr><th>Title</th><th>Vendor</th><th>Status</th></tr>
			{{range .Products}}<tr><td>{{.Title}}</td><td>{{.Vendor}}</td><td>{{.Status}}</td></tr>{{end}}
		</table>
		{{else}}<div class="empty">No products found.</div>{{end}}
	</section>

	<section>
		<h2>Customers ({{len .Customers}})</h2>
		{{if .Customers}}
		<table>
			<tr><th>Name</th><th>Email</th></tr>
			{{range .Customers}}<tr><td>{{.Name}}</td><td>{{.Email}}</td></tr>{{end}}
		</table>
		{{else}}<div class="empty">No customers found.</div>{{end}}
	</section>

	<section>
		<h2>Orders ({{len .Orders}})</h2>
		{{if .Orders}}
		<table>
			<tr><th>Order</th><th>Email</th><th>Payment</th></tr>
			{{range .Orders}}<tr><td>{{.Name}}</td><td>{{.Email}}</td><td>{{.FinancialStatus}}</td></tr>{{end}}
		</table>
		{{else}}<div class="empty">No orders found.</div>{{end}}
	</section>
</body>
</html>
`))

// Dashboard handles GET /dashboard?shop= and renders a small sample of
// the shop's data fetched with the stored credential.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")

	snapshot, err := h.reports.Snapshot(r.Context(), shop)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardPage.Execute(w, snapshot); err != nil {
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to render dashboard")
	}
}
