package domain

import "time"

// Product carries its per-variant stock counts as a map keyed by the
// variant label (size or color). Prices are stored in minor units.
type Product struct {
	ID         int64            `db:"id" json:"id"`
	Name       string           `db:"name" json:"name"`
	ProductNo  string           `db:"product_no" json:"productNo"`
	Price      int64            `db:"price" json:"price"`
	ImageURL   string           `db:"image_url" json:"img"`
	Quantities map[string]int64 `json:"quantities"`
	CreatedAt  time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updatedAt"`
}

type UpdateProductInput struct {
	Name       *string          `json:"name"`
	ProductNo  *string          `json:"productNo"`
	Price      *int64           `json:"price"`
	ImageURL   *string          `json:"img"`
	Quantities map[string]int64 `json:"quantities"`
}
