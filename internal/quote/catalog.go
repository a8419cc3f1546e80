package quote

import (
	"github.com/liqpass/liqpass-backend/internal/models"
)

// StaticCatalog serves SKUs from an in-memory map built at startup from
// configuration. The catalog is immutable after construction, so lookups
// need no locking.
type StaticCatalog struct {
	skus map[string]models.SKU
}

// NewStaticCatalog builds a catalog from the configured SKU list
func NewStaticCatalog(skus []models.SKU) *StaticCatalog {
	m := make(map[string]models.SKU, len(skus))
	for _, sku := range skus {
		m[sku.ID] = sku
	}
	return &StaticCatalog{skus: m}
}

// GetSKU retrieves a SKU by id
func (c *StaticCatalog) GetSKU(id string) (*models.SKU, error) {
	sku, ok := c.skus[id]
	if !ok {
		return nil, models.ErrSKUNotFound
	}
	return &sku, nil
}

// List returns every SKU in the catalog
func (c *StaticCatalog) List() []models.SKU {
	out := make([]models.SKU, 0, len(c.skus))
	for _, sku := range c.skus {
		out = append(out, sku)
	}
	return out
}
