package tradingService

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sivasankari007/CodeAlpha-trading-platform/config"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/internal/model"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/internal/service"
)

type fakeQuotes map[string]model.Stock

func (q fakeQuotes) GetStock(symbol string) (model.Stock, bool) {
	st, ok := q[symbol]
	return st, ok
}

type fakeCache struct {
	mu        sync.Mutex
	summaries map[string]model.PortfolioSummary
	err       error
}

func (c *fakeCache) SetPortfolioSummary(ctx context.Context, summary model.PortfolioSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.summaries == nil {
		c.summaries = make(map[string]model.PortfolioSummary)
	}
	c.summaries[summary.UserID] = summary
	return nil
}

type fakeGenerator struct {
	got []model.PortfolioStatement
	err error
}

func (g *fakeGenerator) Generate(ctx context.Context, statements []model.PortfolioStatement) ([]byte, string, error) {
	g.got = statements
	if g.err != nil {
		return nil, "", g.err
	}
	return []byte("report"), ".xlsx", nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func stock(symbol, price string) model.Stock {
	return model.Stock{Symbol: symbol, Name: symbol + " Inc.", Price: d(price)}
}

func newService(t *testing.T, quotes fakeQuotes, cache Cache, gen ReportGenerator) *TradingService {
	t.Helper()
	cfg := &config.Config{Trading: config.Trading{StartingCash: d("100000")}}
	if gen == nil {
		gen = &fakeGenerator{}
	}
	s := New(cfg, quotes, cache, gen)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestGetOrCreatePortfolio(t *testing.T) {
	s := newService(t, nil, nil, nil)
	ctx := context.Background()

	_, err := s.GetPortfolio(ctx, "alice")
	assert.ErrorIs(t, err, service.ErrNotFound)

	p := s.GetOrCreatePortfolio(ctx, "alice")
	assert.Equal(t, "alice", p.UserID)
	assert.True(t, p.Cash().Equal(d("100000")))
	assert.Empty(t, p.Holdings())
	assert.Empty(t, p.Transactions())

	assert.Same(t, p, s.GetOrCreatePortfolio(ctx, "alice"))

	got, err := s.GetPortfolio(ctx, "alice")
	require.NoError(t, err)
	assert.Same(t, p, got)
}

func TestGetOrCreatePortfolioConcurrent(t *testing.T) {
	s := newService(t, nil, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*model.Portfolio, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.GetOrCreatePortfolio(ctx, "bob")
		}(i)
	}
	wg.Wait()

	for _, p := range results {
		assert.Same(t, results[0], p)
	}
	assert.Len(t, s.allPortfolios(), 1)
}

func TestExecuteTransactionScenario(t *testing.T) {
	s := newService(t, nil, nil, nil)
	ctx := context.Background()

	res := s.ExecuteTransaction(ctx, "u1", stock("AAPL", "175.25"), model.TransactionBuy, 10)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Bought 10 shares of AAPL", res.Message)
	assert.Equal(t, model.KindNone, res.Kind)
	require.NotNil(t, res.Transaction)
	assert.Contains(t, res.Transaction.ID, "tx_")
	assert.Equal(t, "u1", res.Transaction.UserID)
	assert.True(t, res.Transaction.TotalValue.Equal(d("1752.50")))
	assert.Equal(t, s.now(), res.Transaction.Timestamp)

	res = s.ExecuteTransaction(ctx, "u1", stock("AAPL", "180.00"), model.TransactionBuy, 5)
	require.True(t, res.Success, res.Message)

	p := s.GetOrCreatePortfolio(ctx, "u1")
	h, ok := p.Holding("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(15), h.Quantity)
	assert.Equal(t, "176.83", h.AvgCost.StringFixed(2))

	res = s.ExecuteTransaction(ctx, "u1", stock("AAPL", "190.00"), model.TransactionSell, 15)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Sold 15 shares of AAPL", res.Message)

	_, ok = p.Holding("AAPL")
	assert.False(t, ok)
	assert.True(t, p.Cash().Equal(d("100197.50")))

	txs := p.Transactions()
	require.Len(t, txs, 3)
	assert.NotEqual(t, txs[0].ID, txs[1].ID)
	assert.NotEqual(t, txs[1].ID, txs[2].ID)
}

func TestExecuteTransactionRejections(t *testing.T) {
	tests := []struct {
		name     string
		stock    model.Stock
		txType   model.TransactionType
		quantity int64
		kind     model.TradeErrorKind
		message  string
	}{
		{"insufficient funds", stock("NVDA", "875.20"), model.TransactionBuy, 200, model.KindInsufficientFunds, "insufficient funds: need $175040.00, have $99000.00"},
		{"sell unheld", stock("META", "325.75"), model.TransactionSell, 1, model.KindInsufficientShares, "insufficient shares: need 1, have 0"},
		{"sell beyond held", stock("AAPL", "100"), model.TransactionSell, 11, model.KindInsufficientShares, "insufficient shares: need 11, have 10"},
		{"zero quantity", stock("AAPL", "100"), model.TransactionBuy, 0, model.KindInvalidQuantity, "invalid quantity: 0"},
		{"negative quantity", stock("AAPL", "100"), model.TransactionSell, -5, model.KindInvalidQuantity, "invalid quantity: -5"},
		{"unknown type", stock("AAPL", "100"), model.TransactionType("short"), 1, model.KindInvalidType, `invalid transaction type: "short"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newService(t, nil, nil, nil)
			ctx := context.Background()
			require.True(t, s.ExecuteTransaction(ctx, "u1", stock("AAPL", "100"), model.TransactionBuy, 10).Success)

			p := s.GetOrCreatePortfolio(ctx, "u1")
			cash, holdings, txs := p.Cash(), p.Holdings(), p.Transactions()

			res := s.ExecuteTransaction(ctx, "u1", tt.stock, tt.txType, tt.quantity)

			assert.False(t, res.Success)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.message, res.Message)
			assert.Nil(t, res.Transaction)

			assert.True(t, p.Cash().Equal(cash))
			assert.Equal(t, holdings, p.Holdings())
			assert.Equal(t, txs, p.Transactions())
		})
	}
}

func TestExecuteTransactionUsesGivenPrice(t *testing.T) {
	s := newService(t, nil, nil, nil)
	ctx := context.Background()

	quote := stock("TSLA", "200")
	res := s.ExecuteTransaction(ctx, "u1", quote, model.TransactionBuy, 1)
	require.True(t, res.Success)

	quote.UpdatePrice(d("250"))
	res = s.ExecuteTransaction(ctx, "u1", quote, model.TransactionBuy, 1)
	require.True(t, res.Success)
	assert.True(t, res.Transaction.Price.Equal(d("250")))
	assert.True(t, s.GetOrCreatePortfolio(ctx, "u1").Cash().Equal(d("99550")))
}

func TestTradeResolvesLiveQuote(t *testing.T) {
	quotes := fakeQuotes{"MSFT": stock("MSFT", "378.85")}
	s := newService(t, quotes, nil, nil)
	ctx := context.Background()

	res := s.Trade(ctx, "u1", "MSFT", model.TransactionBuy, 2)
	require.True(t, res.Success, res.Message)
	assert.True(t, res.Transaction.TotalValue.Equal(d("757.70")))

	quotes["MSFT"] = stock("MSFT", "400")
	res = s.Trade(ctx, "u1", "MSFT", model.TransactionSell, 2)
	require.True(t, res.Success, res.Message)
	assert.True(t, res.Transaction.Price.Equal(d("400")))

	res = s.Trade(ctx, "u1", "ZZZZ", model.TransactionBuy, 1)
	assert.False(t, res.Success)
	assert.Equal(t, model.KindUnknownSymbol, res.Kind)
	assert.Equal(t, "unknown symbol: ZZZZ", res.Message)
}

func TestConcurrentBuysNeverOverspend(t *testing.T) {
	s := newService(t, nil, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := s.ExecuteTransaction(ctx, "u1", stock("NFLX", "10000"), model.TransactionBuy, 1)
			if res.Success {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	p := s.GetOrCreatePortfolio(ctx, "u1")
	assert.Equal(t, 10, succeeded)
	assert.True(t, p.Cash().IsZero())
	h, _ := p.Holding("NFLX")
	assert.Equal(t, int64(10), h.Quantity)
	assert.Len(t, p.Transactions(), 10)
}

func TestUpdatePortfolioWithMarketData(t *testing.T) {
	s := newService(t, nil, nil, nil)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		s.UpdatePortfolioWithMarketData(ctx, "ghost", []model.Stock{stock("AAPL", "1")})
	})
	_, err := s.GetPortfolio(ctx, "ghost")
	assert.ErrorIs(t, err, service.ErrNotFound, "revaluation does not create portfolios")

	require.True(t, s.ExecuteTransaction(ctx, "u1", stock("AAPL", "100"), model.TransactionBuy, 10).Success)
	require.True(t, s.ExecuteTransaction(ctx, "u1", stock("GOOGL", "50"), model.TransactionBuy, 10).Success)

	s.UpdatePortfolioWithMarketData(ctx, "u1", []model.Stock{stock("AAPL", "110"), stock("AMZN", "1")})

	p := s.GetOrCreatePortfolio(ctx, "u1")
	aapl, _ := p.Holding("AAPL")
	googl, _ := p.Holding("GOOGL")
	assert.True(t, aapl.TotalValue.Equal(d("1100")))
	assert.True(t, aapl.UnrealizedGain.Equal(d("100")))
	assert.True(t, googl.TotalValue.Equal(d("500")))
	assert.True(t, p.TotalValue().Equal(d("100100")))
	_, ok := p.Holding("AMZN")
	assert.False(t, ok)
}

func TestRevalueAllPublishesSummaries(t *testing.T) {
	cache := &fakeCache{}
	s := newService(t, nil, cache, nil)
	ctx := context.Background()

	require.True(t, s.ExecuteTransaction(ctx, "a", stock("AAPL", "100"), model.TransactionBuy, 1).Success)
	require.True(t, s.ExecuteTransaction(ctx, "b", stock("AAPL", "100"), model.TransactionBuy, 2).Success)

	require.NoError(t, s.RevalueAll(ctx, []model.Stock{stock("AAPL", "150")}))

	require.Len(t, cache.summaries, 2)
	assert.True(t, cache.summaries["a"].TotalGainLoss.Equal(d("50")))
	assert.True(t, cache.summaries["b"].TotalGainLoss.Equal(d("100")))
	assert.True(t, cache.summaries["b"].TotalValue.Equal(d("100100")))

	cache.err = errors.New("redis down")
	assert.Error(t, s.RevalueAll(ctx, []model.Stock{stock("AAPL", "90")}))
	h, _ := s.GetOrCreatePortfolio(ctx, "a").Holding("AAPL")
	assert.True(t, h.CurrentPrice.Equal(d("90")), "revaluation happens even when caching fails")
}

func TestRevalueAllWithoutCache(t *testing.T) {
	s := newService(t, nil, nil, nil)
	ctx := context.Background()
	require.True(t, s.ExecuteTransaction(ctx, "a", stock("AAPL", "100"), model.TransactionBuy, 1).Success)

	require.NoError(t, s.RevalueAll(ctx, []model.Stock{stock("AAPL", "120")}))
	assert.True(t, s.GetOrCreatePortfolio(ctx, "a").TotalGainLoss().Equal(d("20")))
}

func TestStatementAndExport(t *testing.T) {
	gen := &fakeGenerator{}
	s := newService(t, nil, nil, gen)
	ctx := context.Background()

	_, _, err := s.ExportStatements(ctx)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = s.Statement(ctx, "u1")
	assert.ErrorIs(t, err, service.ErrNotFound)

	require.True(t, s.ExecuteTransaction(ctx, "u1", stock("AAPL", "100"), model.TransactionBuy, 3).Success)
	require.True(t, s.ExecuteTransaction(ctx, "u1", stock("AAPL", "120"), model.TransactionSell, 1).Success)

	st, err := s.Statement(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", st.UserID)
	assert.Len(t, st.Holdings, 1)
	assert.Len(t, st.Transactions, 2)
	assert.True(t, st.RealizedGainLoss.Equal(d("20")))
	assert.Equal(t, s.now(), st.GeneratedAt)

	data, ext, err := s.ExportStatements(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("report"), data)
	assert.Equal(t, ".xlsx", ext)
	require.Len(t, gen.got, 1)
	assert.Equal(t, "u1", gen.got[0].UserID)

	gen.err = errors.New("disk full")
	_, _, err = s.ExportStatements(ctx)
	assert.Error(t, err)
}
