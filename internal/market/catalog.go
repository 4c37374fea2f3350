package market

import (
	"github.com/shopspring/decimal"

	"github.com/Sivasankari007/CodeAlpha-trading-platform/internal/model"
)

func newStock(symbol, name, price, change, changePercent string, volume, marketCap int64) model.Stock {
	return model.Stock{
		Symbol:        symbol,
		Name:          name,
		Price:         decimal.RequireFromString(price),
		Change:        decimal.RequireFromString(change),
		ChangePercent: decimal.RequireFromString(changePercent),
		Volume:        volume,
		MarketCap:     marketCap,
	}
}

// DefaultCatalog returns the instruments the sandbox trades, with their opening quotes.
func DefaultCatalog() []model.Stock {
	return []model.Stock{
		newStock("AAPL", "Apple Inc.", "175.25", "2.50", "1.45", 50_000_000, 2_800_000_000_000),
		newStock("GOOGL", "Alphabet Inc.", "141.75", "-1.25", "-0.87", 25_000_000, 1_800_000_000_000),
		newStock("MSFT", "Microsoft Corporation", "378.85", "5.20", "1.39", 30_000_000, 2_900_000_000_000),
		newStock("TSLA", "Tesla, Inc.", "248.50", "-8.75", "-3.40", 75_000_000, 800_000_000_000),
		newStock("AMZN", "Amazon.com Inc.", "145.30", "0.95", "0.66", 40_000_000, 1_500_000_000_000),
		newStock("NVDA", "NVIDIA Corporation", "875.20", "15.80", "1.84", 60_000_000, 2_200_000_000_000),
		newStock("META", "Meta Platforms Inc.", "325.75", "-2.10", "-0.64", 35_000_000, 850_000_000_000),
		newStock("NFLX", "Netflix Inc.", "485.60", "8.40", "1.76", 15_000_000, 210_000_000_000),
	}
}
