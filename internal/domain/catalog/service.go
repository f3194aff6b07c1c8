// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Source lists products, optionally narrowed by a search term
type Source interface {
	ListProducts(ctx context.Context, query string) ([]Product, error)
}

// Service fetches and annotates product listings
type Service struct {
	source Source
	log    logrus.FieldLogger
}

// NewService creates a new catalog service
func NewService(source Source, log logrus.FieldLogger) *Service {
	return &Service{source: source, log: log}
}

// Fetch reads the product list and assigns display indices 0..n-1.
// Indices are positional and only valid for the returned listing.
func (s *Service) Fetch(ctx context.Context, query string) (*Listing, error) {
	query = strings.TrimSpace(query)

	products, err := s.source.ListProducts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	listing := &Listing{Query: query, Items: make([]ListedProduct, 0, len(products))}
	for _, p := range products {
		if p.ID == "" || p.Price.IsNegative() {
			s.log.WithFields(logrus.Fields{
				"product_id": p.ID,
				"price":      p.Price.String(),
			}).Warn("Skipping malformed product")
			continue
		}
		if p.Quantity < 0 {
			p.Quantity = 0
		}
		p.DesiredQuantity = min(1, p.Quantity)

		listing.Items = append(listing.Items, ListedProduct{
			Index:          len(listing.Items),
			FormattedPrice: FormatPrice(p.Price),
			Product:        p,
		})
	}

	s.log.WithFields(logrus.Fields{
		"query": query,
		"count": len(listing.Items),
	}).Debug("Fetched catalog")

	return listing, nil
}
