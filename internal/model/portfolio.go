package model

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioHolding is an open position in one instrument. TotalValue and the
// unrealized fields always reflect CurrentPrice and AvgCost.
type PortfolioHolding struct {
	Symbol                string          `json:"symbol"`
	Quantity              int64           `json:"quantity"`
	AvgCost               decimal.Decimal `json:"avg_cost"`
	CurrentPrice          decimal.Decimal `json:"current_price"`
	TotalValue            decimal.Decimal `json:"total_value"`
	UnrealizedGain        decimal.Decimal `json:"unrealized_gain"`
	UnrealizedGainPercent decimal.Decimal `json:"unrealized_gain_percent"`
}

func (h *PortfolioHolding) revalue(price decimal.Decimal) {
	qty := decimal.NewFromInt(h.Quantity)
	cost := qty.Mul(h.AvgCost)

	h.CurrentPrice = price
	h.TotalValue = qty.Mul(price)
	h.UnrealizedGain = h.TotalValue.Sub(cost)
	if cost.IsZero() {
		h.UnrealizedGainPercent = decimal.Zero
		return
	}
	h.UnrealizedGainPercent = h.UnrealizedGain.Div(cost).Mul(hundred)
}

type PortfolioSummary struct {
	UserID               string          `json:"user_id"`
	Cash                 decimal.Decimal `json:"cash"`
	TotalValue           decimal.Decimal `json:"total_value"`
	TotalGainLoss        decimal.Decimal `json:"total_gain_loss"`
	TotalGainLossPercent decimal.Decimal `json:"total_gain_loss_percent"`
	RealizedGainLoss     decimal.Decimal `json:"realized_gain_loss"`
	HoldingsCount        int             `json:"holdings_count"`
	TransactionsCount    int             `json:"transactions_count"`
}

type PortfolioStatement struct {
	PortfolioSummary
	Holdings     []PortfolioHolding
	Transactions []Transaction
	GeneratedAt  time.Time
}

// Portfolio is the cash balance, open holdings and ledger of one user.
// It is safe for concurrent use.
type Portfolio struct {
	UserID string

	mu           sync.RWMutex
	cash         decimal.Decimal
	holdings     map[string]*PortfolioHolding
	order        []string // holding symbols in opening order
	transactions []Transaction
}

func NewPortfolio(userID string, initialCash decimal.Decimal) *Portfolio {
	return &Portfolio{
		UserID:   userID,
		cash:     initialCash,
		holdings: make(map[string]*PortfolioHolding),
	}
}

func (p *Portfolio) Cash() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cash
}

func (p *Portfolio) Holding(symbol string) (PortfolioHolding, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	h, ok := p.holdings[symbol]
	if !ok {
		return PortfolioHolding{}, false
	}
	return *h, true
}

// Holdings returns the open positions in the order they were opened.
func (p *Portfolio) Holdings() []PortfolioHolding {
	p.mu.RLock()
	defer p.mu.RUnlock()

	res := make([]PortfolioHolding, 0, len(p.order))
	for _, symbol := range p.order {
		res = append(res, *p.holdings[symbol])
	}
	return res
}

func (p *Portfolio) Transactions() []Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	res := make([]Transaction, len(p.transactions))
	copy(res, p.transactions)
	return res
}

// AddTransaction records tx in the ledger and applies its accounting without any
// solvency checks. Use Settle to validate first.
func (p *Portfolio) AddTransaction(tx Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addTransaction(tx)
}

// Settle checks tx against the current cash and holdings and applies it only if
// it passes. Check and application happen under the same lock.
func (p *Portfolio) Settle(tx Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.check(tx); err != nil {
		return err
	}
	p.addTransaction(tx)
	return nil
}

func (p *Portfolio) check(tx Transaction) error {
	if tx.Quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, tx.Quantity)
	}

	switch tx.Type {
	case TransactionBuy:
		if p.cash.LessThan(tx.TotalValue) {
			return fmt.Errorf("%w: need $%s, have $%s", ErrInsufficientFunds, tx.TotalValue.StringFixed(2), p.cash.StringFixed(2))
		}
	case TransactionSell:
		var held int64
		if h, ok := p.holdings[tx.StockSymbol]; ok {
			held = h.Quantity
		}
		if held < tx.Quantity {
			return fmt.Errorf("%w: need %d, have %d", ErrInsufficientShares, tx.Quantity, held)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, tx.Type)
	}
	return nil
}

func (p *Portfolio) addTransaction(tx Transaction) {
	p.transactions = append(p.transactions, tx)

	switch tx.Type {
	case TransactionBuy:
		p.buy(tx)
	case TransactionSell:
		p.sell(tx)
	}
}

func (p *Portfolio) buy(tx Transaction) {
	h, ok := p.holdings[tx.StockSymbol]
	if ok {
		qty := h.Quantity + tx.Quantity
		cost := h.AvgCost.Mul(decimal.NewFromInt(h.Quantity)).Add(tx.TotalValue)
		h.AvgCost = cost.Div(decimal.NewFromInt(qty))
		h.Quantity = qty
		h.revalue(tx.Price)
	} else {
		p.holdings[tx.StockSymbol] = &PortfolioHolding{
			Symbol:                tx.StockSymbol,
			Quantity:              tx.Quantity,
			AvgCost:               tx.Price,
			CurrentPrice:          tx.Price,
			TotalValue:            tx.TotalValue,
			UnrealizedGain:        decimal.Zero,
			UnrealizedGainPercent: decimal.Zero,
		}
		p.order = append(p.order, tx.StockSymbol)
	}

	p.cash = p.cash.Sub(tx.TotalValue)
}

func (p *Portfolio) sell(tx Transaction) {
	if h, ok := p.holdings[tx.StockSymbol]; ok {
		h.Quantity -= tx.Quantity
		if h.Quantity <= 0 {
			p.removeHolding(tx.StockSymbol)
		} else {
			h.revalue(tx.Price)
		}
	}

	p.cash = p.cash.Add(tx.TotalValue)
}

func (p *Portfolio) removeHolding(symbol string) {
	delete(p.holdings, symbol)
	for i, s := range p.order {
		if s == symbol {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}

// UpdateHoldingPrice revalues the holding of symbol at newPrice. Unknown symbols are ignored.
func (p *Portfolio) UpdateHoldingPrice(symbol string, newPrice decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.holdings[symbol]; ok {
		h.revalue(newPrice)
	}
}

// RevalueHoldings applies a batch of quotes in one critical section. Holdings
// without a quote in the batch keep their last valuation.
func (p *Portfolio) RevalueHoldings(stocks []Stock) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	updated := 0
	for _, stock := range stocks {
		if h, ok := p.holdings[stock.Symbol]; ok {
			h.revalue(stock.Price)
			updated++
		}
	}
	return updated
}

func (p *Portfolio) TotalValue() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totalValue()
}

func (p *Portfolio) TotalGainLoss() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totalGainLoss()
}

func (p *Portfolio) TotalGainLossPercent() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totalGainLossPercent()
}

func (p *Portfolio) totalValue() decimal.Decimal {
	total := p.cash
	for _, h := range p.holdings {
		total = total.Add(h.TotalValue)
	}
	return total
}

func (p *Portfolio) totalGainLoss() decimal.Decimal {
	total := decimal.Zero
	for _, h := range p.holdings {
		total = total.Add(h.UnrealizedGain)
	}
	return total
}

func (p *Portfolio) totalGainLossPercent() decimal.Decimal {
	gain := p.totalGainLoss()
	invested := p.totalValue().Sub(gain)
	if !invested.IsPositive() {
		return decimal.Zero
	}
	return gain.Div(invested).Mul(hundred)
}

// RealizedGainLoss replays the ledger with weighted average cost and sums the
// profit or loss of every sale. Sales beyond the replayed position are ignored.
func (p *Portfolio) RealizedGainLoss() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.realizedGainLoss()
}

func (p *Portfolio) realizedGainLoss() decimal.Decimal {
	type position struct {
		qty  int64
		cost decimal.Decimal
	}

	positions := make(map[string]*position)
	realized := decimal.Zero

	for _, tx := range p.transactions {
		pos, ok := positions[tx.StockSymbol]
		if !ok {
			pos = &position{}
			positions[tx.StockSymbol] = pos
		}

		switch tx.Type {
		case TransactionBuy:
			pos.qty += tx.Quantity
			pos.cost = pos.cost.Add(tx.TotalValue)
		case TransactionSell:
			if pos.qty <= 0 {
				continue
			}
			sold := min(tx.Quantity, pos.qty)
			basis := pos.cost.Mul(decimal.NewFromInt(sold)).Div(decimal.NewFromInt(pos.qty))
			realized = realized.Add(tx.Price.Mul(decimal.NewFromInt(sold)).Sub(basis))
			pos.qty -= sold
			pos.cost = pos.cost.Sub(basis)
			if pos.qty == 0 {
				pos.cost = decimal.Zero
			}
		}
	}

	return realized
}

func (p *Portfolio) Summary() PortfolioSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return PortfolioSummary{
		UserID:               p.UserID,
		Cash:                 p.cash,
		TotalValue:           p.totalValue(),
		TotalGainLoss:        p.totalGainLoss(),
		TotalGainLossPercent: p.totalGainLossPercent(),
		RealizedGainLoss:     p.realizedGainLoss(),
		HoldingsCount:        len(p.holdings),
		TransactionsCount:    len(p.transactions),
	}
}
