package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arkapay/ppob-backend/internal/models"
	"github.com/arkapay/ppob-backend/internal/provider"
)

// CatalogFeed lists the provider's current price catalog.
type CatalogFeed interface {
	Fetch(ctx context.Context) ([]provider.CatalogItem, error)
}

// CatalogService mirrors the provider price list into the products table.
type CatalogService struct {
	store  Store
	feed   CatalogFeed
	margin decimal.Decimal
}

// NewCatalogService builds a catalog sync. margin is the flat amount added
// to every provider price to form the selling price.
func NewCatalogService(store Store, feed CatalogFeed, margin decimal.Decimal) *CatalogService {
	return &CatalogService{store: store, feed: feed, margin: margin}
}

// SyncResult summarizes one catalog run.
type SyncResult struct {
	Upserted    int   `json:"upserted"`
	Deactivated int64 `json:"deactivated"`
}

// Sync fetches the catalog, upserts every entry with the margin applied, and
// deactivates products that fell out of the feed.
func (s *CatalogService) Sync(ctx context.Context) (SyncResult, error) {
	items, err := s.feed.Fetch(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	var result SyncResult
	codes := make([]string, 0, len(items))
	for _, item := range items {
		p := &models.Product{
			ID:          uuid.New(),
			Code:        item.Code,
			Name:        item.Name,
			Category:    item.Category,
			Description: item.Description,
			Price:       item.Price.Add(s.margin),
			Active:      item.Active,
		}
		if err := s.store.UpsertProduct(ctx, p); err != nil {
			zap.L().Error("failed to upsert product", zap.String("code", item.Code), zap.Error(err))
			continue
		}
		codes = append(codes, item.Code)
		result.Upserted++
	}

	if len(codes) > 0 {
		result.Deactivated, err = s.store.DeactivateMissingProducts(ctx, codes)
		if err != nil {
			return result, err
		}
	}

	zap.L().Info("catalog synced",
		zap.Int("upserted", result.Upserted),
		zap.Int64("deactivated", result.Deactivated))
	return result, nil
}

// Products lists the sellable catalog.
func (s *CatalogService) Products(ctx context.Context, includeInactive bool) ([]models.Product, error) {
	return s.store.ListProducts(ctx, !includeInactive)
}

func (s *CatalogService) Product(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.store.GetProduct(ctx, id)
}
