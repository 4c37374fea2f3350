package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionBuy  TransactionType = "buy"
	TransactionSell TransactionType = "sell"
)

func (t TransactionType) Valid() bool {
	return t == TransactionBuy || t == TransactionSell
}

// Transaction is an executed trade. It is never modified after creation.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	StockSymbol string          `json:"stock_symbol"`
	Type        TransactionType `json:"type"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalValue  decimal.Decimal `json:"total_value"`
	Timestamp   time.Time       `json:"timestamp"`
}

func (t Transaction) FormattedValue() string {
	return "$" + t.TotalValue.StringFixed(2)
}

func (t Transaction) FormattedTimestamp() string {
	return t.Timestamp.Format("2006-01-02 15:04:05")
}
