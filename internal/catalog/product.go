package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no active product matches a service id.
var ErrNotFound = errors.New("service not found")

// Product types stored in the catalog.
const (
	TypeOneTime      = "one-time"
	TypeSubscription = "subscription"
)

// Product is a sellable service bound to a provider price.
type Product struct {
	ServiceID         string `db:"service_id" json:"serviceId"`
	Name              string `db:"name" json:"name"`
	Description       string `db:"description" json:"description"`
	PriceCents        int64  `db:"price_cents" json:"priceCents"`
	Type              string `db:"type" json:"type"`
	ProviderProductID string `db:"provider_product_id" json:"providerProductId"`
	ProviderPriceID   string `db:"provider_price_id" json:"providerPriceId"`
}

// IsSubscription reports whether the product bills on a recurring basis.
func (p Product) IsSubscription() bool {
	return p.Type == TypeSubscription
}

// Store is the read side of the catalog.
type Store interface {
	ProductByServiceID(ctx context.Context, serviceID string) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
}
