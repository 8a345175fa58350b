package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"shopify-auth-backend/internal/domain"
	"shopify-auth-backend/internal/infrastructure/shopify"
	"shopify-auth-backend/internal/ports"
)

const snapshotLimit = 5

// ProductRow is a display row for the dashboard product list.
type ProductRow struct {
	Title  string
	Vendor string
	Status string
}

// CustomerRow is a display row for the dashboard customer list.
type CustomerRow struct {
	Name  string
	Email string
}

// OrderRow is a display row for the dashboard order list.
type OrderRow struct {
	Name            string
	Email           string
	FinancialStatus string
}

// ShopSnapshot is the data behind the dashboard page.
type ShopSnapshot struct {
	ShopDomain  string
	MaskedToken string
	Products    []ProductRow
	Customers   []CustomerRow
	Orders      []OrderRow
}

// ReportService reads a small sample of shop data through the provider
// API using the stored credential. It only ever reads the store.
type ReportService struct {
	repo   ports.InstallationRepository
	client ports.ShopifyClient
	logger zerolog.Logger
}

// NewReportService creates the dashboard read service.
func NewReportService(repo ports.InstallationRepository, client ports.ShopifyClient, logger zerolog.Logger) *ReportService {
	return &ReportService{repo: repo, client: client, logger: logger}
}

// Snapshot fetches up to five products, customers and orders for a shop.
// The offline credential is preferred; GetByShop orders offline first.
func (s *ReportService) Snapshot(ctx context.Context, shop string) (*ShopSnapshot, error) {
	if !shopify.IsValidShopDomain(shop) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidShopDomain, shop)
	}

	installations, err := s.repo.GetByShop(ctx, shop)
	if err != nil {
		return nil, err
	}
	if len(installations) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotInstalled, shop)
	}
	token := installations[0].AccessToken

	products, err := s.client.GetProducts(ctx, shop, token, snapshotLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	customers, err := s.client.GetCustomers(ctx, shop, token, snapshotLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch customers: %w", err)
	}
	orders, err := s.client.GetOrders(ctx, shop, token, snapshotLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}

	snapshot := &ShopSnapshot{
		ShopDomain:  shop,
		MaskedToken: shopify.MaskToken(token),
	}
	for _, p := range products {
		snapshot.Products = append(snapshot.Products, ProductRow{
			Title:  p.Title,
			Vendor: p.Vendor,
			Status: string(p.Status),
		})
	}
	for _, c := range customers {
		snapshot.Customers = append(snapshot.Customers, CustomerRow{
			Name:  strings.TrimSpace(c.FirstName + " " + c.LastName),
			Email: c.Email,
		})
	}
	for _, o := range orders {
		snapshot.Orders = append(snapshot.Orders, OrderRow{
			Name:            o.Name,
			Email:           o.Email,
			FinancialStatus: string(o.FinancialStatus),
		})
	}

	s.logger.Debug().
		Str("shop", shop).
		Int("products", len(snapshot.Products)).
		Int("customers", len(snapshot.Customers)).
		Int("orders", len(snapshot.Orders)).
		Msg("Built shop snapshot")

	return snapshot, nil
}
