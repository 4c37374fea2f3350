package market

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Sivasankari007/CodeAlpha-trading-platform/config"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/internal/model"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/internal/scheduler"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/utils"
)

const tickJobName = "market tick"

var ErrStopped = errors.New("market simulator stopped")

var one = decimal.NewFromInt(1)

// Rand is the randomness a tick draws from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Int63n(n int64) int64
}

// Handler receives the full snapshot of all instruments after every tick.
type Handler func(ctx context.Context, stocks []model.Stock) error

type SubscriptionID uint64

type subscriber struct {
	id      SubscriptionID
	handler Handler
}

type Option func(s *Simulator)

func WithRand(r Rand) Option {
	return func(s *Simulator) {
		s.rng = r
	}
}

// WithCatalog replaces the default instruments. Later duplicates of a symbol are ignored.
func WithCatalog(stocks []model.Stock) Option {
	return func(s *Simulator) {
		s.catalog = stocks
	}
}

type Simulator struct {
	interval   time.Duration
	volatility float64
	floor      decimal.Decimal
	maxVolume  int64

	// mu guards symbols, stocks and rng. A tick holds it for the whole mutation.
	mu      sync.RWMutex
	symbols []string
	stocks  map[string]*model.Stock
	rng     Rand

	catalog []model.Stock // seed, consumed by New

	smu         sync.Mutex
	subscribers []subscriber
	nextID      SubscriptionID

	lmu      sync.Mutex
	sched    *scheduler.Scheduler
	started  bool
	stopped  atomic.Bool
	stopOnce sync.Once
	ticking  atomic.Int32 // ticks currently running
}

func New(cfg *config.Config, opts ...Option) *Simulator {
	s := &Simulator{
		interval:   cfg.Market.TickInterval,
		volatility: cfg.Market.Volatility,
		floor:      cfg.Market.PriceFloor,
		maxVolume:  cfg.Market.MaxVolume,
		stocks:     make(map[string]*model.Stock),
		catalog:    DefaultCatalog(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for _, stock := range s.catalog {
		if _, ok := s.stocks[stock.Symbol]; ok {
			continue
		}
		st := stock
		s.stocks[st.Symbol] = &st
		s.symbols = append(s.symbols, st.Symbol)
	}
	s.catalog = nil

	return s
}

// Start schedules the periodic tick. The first tick fires one interval after Start.
func (s *Simulator) Start() error {
	s.lmu.Lock()
	defer s.lmu.Unlock()

	if s.stopped.Load() {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	sched := scheduler.New()
	if err := sched.NewIntervalJob(tickJobName, s.Tick, s.interval, false); err != nil {
		sched.Stop()
		return err
	}
	sched.Start()

	s.sched = sched
	s.started = true

	slog.Info("market simulator started", slog.Duration("interval", s.interval), slog.Int("instruments", len(s.symbols)))
	return nil
}

// Stop cancels the periodic tick. It waits for a price update in flight, and a
// notification already being delivered may finish, but no tick starts and no
// further subscriber is notified once Stop has been called. Safe to call
// repeatedly, before Start and from inside a subscriber.
func (s *Simulator) Stop() {
	s.stopOnce.Do(func() {
		// taken so a price update in flight completes first; subscribers run
		// outside mu, so this never waits on the caller
		s.mu.Lock()
		s.stopped.Store(true)
		s.mu.Unlock()

		s.lmu.Lock()
		sched := s.sched
		s.sched = nil
		s.lmu.Unlock()

		if sched != nil {
			// Shutdown waits for the running job, which may be the caller
			if s.ticking.Load() > 0 {
				go sched.Stop()
			} else {
				sched.Stop()
			}
		}
		slog.Info("market simulator stopped")
	})
}

// Tick moves every instrument once and notifies subscribers with the resulting snapshot.
func (s *Simulator) Tick(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Simulator.Tick"

	if s.stopped.Load() {
		return nil
	}

	s.ticking.Add(1)
	defer s.ticking.Add(-1)

	snapshot, rejected := s.advance()
	if snapshot == nil {
		return nil
	}

	slog.Debug("prices updated", slog.String("rqID", rqID), slog.String("op", op), slog.Int("instruments", len(snapshot)), slog.Int("floorRejected", rejected))

	s.notify(ctx, snapshot)
	return nil
}

func (s *Simulator) advance() (snapshot []model.Stock, rejected int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// re-checked under the lock so a Stop racing with the scheduler wins
	if s.stopped.Load() {
		return nil, 0
	}

	for _, symbol := range s.symbols {
		stock := s.stocks[symbol]

		move := (s.rng.Float64()*2 - 1) * s.volatility
		newPrice := stock.Price.Mul(one.Add(decimal.NewFromFloat(move)))
		if newPrice.GreaterThan(s.floor) {
			stock.UpdatePrice(newPrice)
		} else {
			rejected++
		}

		stock.Volume = s.rng.Int63n(s.maxVolume + 1)
	}

	return s.snapshot(), rejected
}

func (s *Simulator) snapshot() []model.Stock {
	res := make([]model.Stock, 0, len(s.symbols))
	for _, symbol := range s.symbols {
		res = append(res, *s.stocks[symbol])
	}
	return res
}

func (s *Simulator) notify(ctx context.Context, snapshot []model.Stock) {
	s.smu.Lock()
	subs := make([]subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.smu.Unlock()

	for _, sub := range subs {
		if s.stopped.Load() {
			return
		}
		s.dispatch(ctx, sub, snapshot)
	}
}

func (s *Simulator) dispatch(ctx context.Context, sub subscriber, snapshot []model.Stock) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	defer func() {
		if r := recover(); r != nil {
			slog.Error(
				"Panic recovered in market subscriber",
				slog.String("rqID", rqID),
				slog.Uint64("subscriptionID", uint64(sub.id)),
				slog.Any("panic", r),
				slog.String("stacktrace", string(debug.Stack())),
			)
		}
	}()

	// each subscriber gets its own copy of the snapshot
	stocks := make([]model.Stock, len(snapshot))
	copy(stocks, snapshot)

	if err := sub.handler(ctx, stocks); err != nil {
		slog.Error("market subscriber failed", slog.String("rqID", rqID), slog.Uint64("subscriptionID", uint64(sub.id)), slog.String("err", err.Error()))
	}
}

// Subscribe registers h and returns the id that removes it. Registering the
// same handler twice yields two independent subscriptions.
func (s *Simulator) Subscribe(h Handler) SubscriptionID {
	s.smu.Lock()
	defer s.smu.Unlock()

	s.nextID++
	s.subscribers = append(s.subscribers, subscriber{id: s.nextID, handler: h})
	return s.nextID
}

func (s *Simulator) Unsubscribe(id SubscriptionID) {
	s.smu.Lock()
	defer s.smu.Unlock()

	for i, sub := range s.subscribers {
		if sub.id == id {
			s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
			return
		}
	}
}

func (s *Simulator) GetAllStocks() []model.Stock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Simulator) GetStock(symbol string) (model.Stock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stock, ok := s.stocks[symbol]
	if !ok {
		return model.Stock{}, false
	}
	return *stock, true
}
