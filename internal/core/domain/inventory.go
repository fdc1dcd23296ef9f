package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// LowStockThreshold is the stock level below which an item shows up in the low stock alert.
const LowStockThreshold = 10

// Stock levels and transaction quantities are stored in signed 32-bit columns.
const (
	MaxQuantity   = math.MaxInt32
	MinStockLevel = math.MinInt32
)

// MaxPrice is the largest price a DECIMAL(12,2) column holds.
var MaxPrice = decimal.New(999999999999, -2)

type InventoryItem struct {
	ID          int64           `db:"id" json:"id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Description *string         `db:"description" json:"description"`
	StockLevel  int             `db:"stock_level" json:"stock_level"`
	Price       decimal.Decimal `db:"price" json:"price"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

func (i InventoryItem) LowOnStock() bool {
	return i.StockLevel < LowStockThreshold
}

// StockEvent describes a committed stock change caused by a delivered transaction.
type StockEvent struct {
	TransactionID   int64           `json:"transaction_id"`
	InventoryID     int64           `json:"inventory_id"`
	TransactionType TransactionType `json:"transaction_type"`
	Delta           int             `json:"delta"`
	StockLevel      int             `json:"stock_level"`
	Timestamp       time.Time       `json:"timestamp"`
}
