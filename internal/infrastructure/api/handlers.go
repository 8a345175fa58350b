// Package api holds the HTTP handlers. Query parameters are parsed into
// typed structures at this boundary and validated once before anything
// reaches the application layer.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"shopify-auth-backend/internal/application"
	"shopify-auth-backend/internal/config"
	"shopify-auth-backend/internal/domain"
)

// Handler bundles the HTTP endpoints of the service.
type Handler struct {
	auth     *application.AuthService
	reports  *application.ReportService
	cfg      *config.Config
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(auth *application.AuthService, reports *application.ReportService, cfg *config.Config, logger zerolog.Logger) *Handler {
	return &Handler{
		auth:     auth,
		reports:  reports,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
	}
}

// Install handles GET /auth/install?shop=&access_mode= and redirects the
// merchant to the provider authorization page.
func (h *Handler) Install(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	mode := domain.AccessMode(r.URL.Query().Get("access_mode"))
	if mode == "" {
		mode = domain.AccessModeOffline
	}

	authURL, err := h.auth.BuildInstallURL(r.Context(), shop, mode)
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles the signed redirect back from the provider. On success
// the merchant lands on the post-install destination with ?shop= set; on
// any verification or exchange failure an error body is returned and no
// redirect happens.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	params := callbackParamsFromQuery(r)
	if err := h.validate.Struct(params); err != nil {
		h.logger.Warn().Err(err).Msg("Callback rejected: missing required parameters")
		writeJSONError(w, http.StatusBadRequest, "missing required callback parameters")
		return
	}

	shop, mode, err := h.auth.HandleCallback(r.Context(), params)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info().
		Str("shop", shop).
		Str("access_mode", string(mode)).
		Msg("Callback complete, redirecting to post-install destination")

	http.Redirect(w, r, h.cfg.PostInstallRedirectURL+"?shop="+shop, http.StatusFound)
}

// shopConnectionResponse is the payload of GET /auth/shops/{shop}.
type shopConnectionResponse struct {
	Shop    string                       `json:"shop"`
	Records []domain.InstallationSummary `json:"records"`
}

// GetShop handles GET /auth/shops/{shop} and returns the masked
// credential summaries for a shop.
func (h *Handler) GetShop(w http.ResponseWriter, r *http.Request) {
	shop := chi.URLParam(r, "shop")

	summaries, err := h.auth.ListInstallations(r.Context(), shop)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, shopConnectionResponse{Shop: shop, Records: summaries})
}

// Health is the liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func callbackParamsFromQuery(r *http.Request) domain.CallbackParams {
	raw := make(map[string]string, len(r.URL.Query()))
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			raw[key] = values[0]
		}
	}
	return domain.CallbackParams{
		Shop:      raw["shop"],
		Code:      raw["code"],
		HMAC:      raw["hmac"],
		State:     raw["state"],
		Timestamp: raw["timestamp"],
		Raw:       raw,
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Error bodies
// never carry credential material.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidShopDomain):
		writeJSONError(w, http.StatusBadRequest, "invalid shop domain format")
	case errors.Is(err, domain.ErrInvalidAccessMode):
		writeJSONError(w, http.StatusBadRequest, "invalid access mode")
	case errors.Is(err, domain.ErrInvalidHMAC),
		errors.Is(err, domain.ErrStateMismatch),
		errors.Is(err, domain.ErrInvalidSessionToken):
		writeJSONError(w, http.StatusUnauthorized, "request could not be authenticated")
	case errors.Is(err, domain.ErrNotInstalled):
		writeJSONError(w, http.StatusNotFound, "no installation found for shop")
	case errors.Is(err, domain.ErrTokenExchange):
		writeJSONError(w, http.StatusBadGateway, "token exchange with provider failed")
	case errors.Is(err, domain.ErrStorage):
		writeJSONError(w, http.StatusServiceUnavailable, "credential store unavailable")
	default:
		h.logger.Error().Err(err).Msg("Unhandled error")
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
