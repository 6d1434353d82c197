package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product - товар каталога в том объёме, который нужен ядру:
// цены для розницы и опта плюс складской остаток.
type Product struct {
	ID             int64           `db:"id"`
	Name           string          `db:"name"`
	RetailPrice    decimal.Decimal `db:"retail_price"`
	WholesalePrice decimal.Decimal `db:"wholesale_price"`
	StockQuantity  int             `db:"stock_quantity"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}
