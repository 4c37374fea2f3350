package tradingService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Sivasankari007/CodeAlpha-trading-platform/config"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/internal/model"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/internal/service"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/utils"
)

type QuoteSource interface {
	GetStock(symbol string) (model.Stock, bool)
}

type Cache interface {
	SetPortfolioSummary(ctx context.Context, summary model.PortfolioSummary) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, statements []model.PortfolioStatement) (fileBytes []byte, fileExtension string, err error)
}

type TradingService struct {
	startingCash    decimal.Decimal
	quotes          QuoteSource
	cache           Cache
	reportGenerator ReportGenerator
	now             func() time.Time

	mu         sync.RWMutex
	portfolios map[string]*model.Portfolio
	userIDs    []string // creation order
}

// New builds the trading service. cache may be nil, in which case summaries are not published.
func New(cfg *config.Config, quotes QuoteSource, cache Cache, reportGenerator ReportGenerator) *TradingService {
	return &TradingService{
		startingCash:    cfg.Trading.StartingCash,
		quotes:          quotes,
		cache:           cache,
		reportGenerator: reportGenerator,
		now:             time.Now,
		portfolios:      make(map[string]*model.Portfolio),
	}
}

// GetOrCreatePortfolio returns the single portfolio of userID, creating it with
// the starting cash on first use.
func (s *TradingService) GetOrCreatePortfolio(ctx context.Context, userID string) *model.Portfolio {
	s.mu.RLock()
	p, ok := s.portfolios[userID]
	s.mu.RUnlock()
	if ok {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok = s.portfolios[userID]; ok {
		return p
	}

	p = model.NewPortfolio(userID, s.startingCash)
	s.portfolios[userID] = p
	s.userIDs = append(s.userIDs, userID)

	slog.Info(
		"portfolio created",
		slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
		slog.String("userID", userID),
		slog.String("cash", s.startingCash.StringFixed(2)),
	)

	return p
}

func (s *TradingService) GetPortfolio(ctx context.Context, userID string) (*model.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.portfolios[userID]
	if !ok {
		return nil, service.ErrNotFound
	}
	return p, nil
}

func (s *TradingService) allPortfolios() []*model.Portfolio {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]*model.Portfolio, 0, len(s.userIDs))
	for _, id := range s.userIDs {
		res = append(res, s.portfolios[id])
	}
	return res
}

// ExecuteTransaction runs a market order for quantity shares of stock at stock.Price.
// Business rejections are reported in the result, never as a panic or error, and
// leave the portfolio untouched.
func (s *TradingService) ExecuteTransaction(
	ctx context.Context,
	userID string,
	stock model.Stock,
	txType model.TransactionType,
	quantity int64,
) model.TradeResult {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.ExecuteTransaction"

	slog.Debug("ExecuteTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("symbol", stock.Symbol), slog.String("type", string(txType)), slog.Int64("quantity", quantity))
	defer func() {
		slog.Debug("ExecuteTransaction finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("symbol", stock.Symbol))
	}()

	portfolio := s.GetOrCreatePortfolio(ctx, userID)

	tx := model.Transaction{
		ID:          "tx_" + uuid.NewString(),
		UserID:      userID,
		StockSymbol: stock.Symbol,
		Type:        txType,
		Quantity:    quantity,
		Price:       stock.Price,
		TotalValue:  stock.Price.Mul(decimal.NewFromInt(quantity)),
		Timestamp:   s.now(),
	}

	if err := portfolio.Settle(tx); err != nil {
		kind := kindOf(err)
		slog.Info("trade rejected", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("kind", kind.String()), slog.String("reason", err.Error()))
		return failure(kind, err)
	}

	verb := "Bought"
	if txType == model.TransactionSell {
		verb = "Sold"
	}

	slog.Info(
		"trade executed",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("txID", tx.ID),
		slog.String("userID", userID),
		slog.String("symbol", tx.StockSymbol),
		slog.String("type", string(tx.Type)),
		slog.Int64("quantity", tx.Quantity),
		slog.String("price", tx.Price.StringFixed(2)),
		slog.String("value", tx.FormattedValue()),
	)

	return model.TradeResult{
		Success:     true,
		Message:     fmt.Sprintf("%s %d shares of %s", verb, quantity, stock.Symbol),
		Transaction: &tx,
	}
}

// Trade resolves the live quote of symbol at call time and executes against it.
func (s *TradingService) Trade(ctx context.Context, userID, symbol string, txType model.TransactionType, quantity int64) model.TradeResult {
	stock, ok := s.quotes.GetStock(symbol)
	if !ok {
		slog.Warn("trade for unknown symbol", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("userID", userID), slog.String("symbol", symbol))
		return failure(model.KindUnknownSymbol, fmt.Errorf("%w: %s", model.ErrUnknownSymbol, symbol))
	}
	return s.ExecuteTransaction(ctx, userID, stock, txType, quantity)
}

func kindOf(err error) model.TradeErrorKind {
	switch {
	case errors.Is(err, model.ErrInsufficientFunds):
		return model.KindInsufficientFunds
	case errors.Is(err, model.ErrInsufficientShares):
		return model.KindInsufficientShares
	case errors.Is(err, model.ErrInvalidQuantity):
		return model.KindInvalidQuantity
	case errors.Is(err, model.ErrInvalidType):
		return model.KindInvalidType
	case errors.Is(err, model.ErrUnknownSymbol):
		return model.KindUnknownSymbol
	default:
		return model.KindNone
	}
}

func failure(kind model.TradeErrorKind, err error) model.TradeResult {
	return model.TradeResult{Success: false, Kind: kind, Message: err.Error()}
}

// UpdatePortfolioWithMarketData revalues the holdings of userID that appear in
// stocks. Users without a portfolio are ignored.
func (s *TradingService) UpdatePortfolioWithMarketData(ctx context.Context, userID string, stocks []model.Stock) {
	p, err := s.GetPortfolio(ctx, userID)
	if err != nil {
		return
	}

	n := p.RevalueHoldings(stocks)
	slog.Debug("portfolio revalued", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("userID", userID), slog.Int("holdings", n))
}

// RevalueAll is a market subscriber: it revalues every portfolio against the
// tick's snapshot and publishes the new summaries to the cache.
func (s *TradingService) RevalueAll(ctx context.Context, stocks []model.Stock) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.RevalueAll"

	var errs []error
	for _, p := range s.allPortfolios() {
		p.RevalueHoldings(stocks)

		if s.cache == nil {
			continue
		}
		if err := s.cache.SetPortfolioSummary(ctx, p.Summary()); err != nil {
			slog.Warn("can't cache portfolio summary", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", p.UserID), slog.String("err", err.Error()))
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *TradingService) Statement(ctx context.Context, userID string) (model.PortfolioStatement, error) {
	p, err := s.GetPortfolio(ctx, userID)
	if err != nil {
		return model.PortfolioStatement{}, err
	}
	return s.statement(p), nil
}

func (s *TradingService) statement(p *model.Portfolio) model.PortfolioStatement {
	return model.PortfolioStatement{
		PortfolioSummary: p.Summary(),
		Holdings:         p.Holdings(),
		Transactions:     p.Transactions(),
		GeneratedAt:      s.now(),
	}
}

// ExportStatements renders the statements of every portfolio with the report generator.
func (s *TradingService) ExportStatements(ctx context.Context) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.ExportStatements"

	slog.Debug("ExportStatements start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ExportStatements finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	portfolios := s.allPortfolios()
	if len(portfolios) == 0 {
		return nil, "", service.ErrNotFound
	}

	statements := make([]model.PortfolioStatement, 0, len(portfolios))
	for _, p := range portfolios {
		statements = append(statements, s.statement(p))
	}

	fileBytes, fileExtension, err = s.reportGenerator.Generate(ctx, statements)
	if err != nil {
		slog.Error("got error from reportGenerator.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	return fileBytes, fileExtension, nil
}
