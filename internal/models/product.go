package models

import (
	"github.com/shopspring/decimal"
)

// ImageSlots is the number of image references a product can hold
const ImageSlots = 3

// Product represents a catalog item
type Product struct {
	ID            int64           `db:"product_id" json:"product_id"`
	Name          string          `db:"product_name" json:"product_name"`
	Description   *string         `db:"description" json:"description"`
	Price         decimal.Decimal `db:"price" json:"price"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"`
	Image1URL     *string         `db:"image1_url" json:"image1_url"`
	Image2URL     *string         `db:"image2_url" json:"image2_url"`
	Image3URL     *string         `db:"image3_url" json:"image3_url"`
}

// Images returns the image references in slot order, skipping empty slots
func (p *Product) Images() []string {
	refs := make([]string, 0, ImageSlots)
	for _, ref := range []*string{p.Image1URL, p.Image2URL, p.Image3URL} {
		if ref != nil && *ref != "" {
			refs = append(refs, *ref)
		}
	}
	return refs
}

// SetImage stores ref in the given slot (0-based). Out of range slots are ignored.
func (p *Product) SetImage(slot int, ref string) {
	switch slot {
	case 0:
		p.Image1URL = &ref
	case 1:
		p.Image2URL = &ref
	case 2:
		p.Image3URL = &ref
	}
}

// ProductPatch carries a partial product update. Nil fields are left untouched.
type ProductPatch struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	StockQuantity *int
	Images        [ImageSlots]*string
}

// IsEmpty reports whether the patch would change nothing
func (p *ProductPatch) IsEmpty() bool {
	if p.Name != nil || p.Description != nil || p.Price != nil || p.StockQuantity != nil {
		return false
	}
	for _, img := range p.Images {
		if img != nil {
			return false
		}
	}
	return true
}

// Apply copies the patch's set fields onto product
func (p *ProductPatch) Apply(product *Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Description != nil {
		product.Description = p.Description
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.StockQuantity != nil {
		product.StockQuantity = *p.StockQuantity
	}
	for slot, img := range p.Images {
		if img != nil {
			product.SetImage(slot, *img)
		}
	}
}
