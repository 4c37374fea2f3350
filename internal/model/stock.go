package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Stock is a live quote of one instrument. Change and ChangePercent always describe
// the last price transition applied by UpdatePrice.
type Stock struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Volume        int64           `json:"volume"`
	MarketCap     int64           `json:"market_cap"`
}

// UpdatePrice moves the quote to newPrice. The percentage is relative to the price
// before the update. newPrice is not validated.
func (s *Stock) UpdatePrice(newPrice decimal.Decimal) {
	s.Change = newPrice.Sub(s.Price)
	if s.Price.IsZero() {
		s.ChangePercent = decimal.Zero
	} else {
		s.ChangePercent = s.Change.Div(s.Price).Mul(hundred)
	}
	s.Price = newPrice
}

func (s Stock) IsGaining() bool {
	return s.Change.IsPositive()
}

func (s Stock) FormattedPrice() string {
	return "$" + s.Price.StringFixed(2)
}

func (s Stock) FormattedChange() string {
	sign := ""
	if !s.Change.IsNegative() {
		sign = "+"
	}
	return fmt.Sprintf("%s%s (%s%s%%)", sign, s.Change.StringFixed(2), sign, s.ChangePercent.StringFixed(2))
}
