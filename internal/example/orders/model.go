package orders

import (
	"time"

	"github.com/uptrace/bun"
)

// Order is a placed order
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Customer  string    `bun:"customer,notnull" json:"customer"`
	SKU       string    `bun:"sku,notnull" json:"sku"`
	Quantity  int       `bun:"quantity,notnull" json:"quantity"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Stock tracks the units available per SKU. As a restock item Available
// is the number of units added.
type Stock struct {
	bun.BaseModel `bun:"table:stock,alias:s"`

	SKU       string `bun:"sku,pk" json:"sku" validate:"required,max=64"`
	Available int    `bun:"available,notnull" json:"available" validate:"gt=0"`
}

// CreateOrderRequest is the body of POST /orders
type CreateOrderRequest struct {
	Customer string `json:"customer" validate:"required,max=200"`
	SKU      string `json:"sku" validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

// RestockRequest is the body of POST /stock
type RestockRequest struct {
	Items []Stock `json:"items" validate:"required,min=1,dive"`
}
