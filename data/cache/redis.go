package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/Sivasankari007/CodeAlpha-trading-platform/config"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/internal/model"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/internal/service"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/utils"
)

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}

func summaryKey(userID string) string {
	return fmt.Sprintf("portfolio:%s:summary", userID)
}

// SetStocks stores every quote of a market snapshot. Its signature matches
// market.Handler so it can subscribe to the simulator directly.
func (r *RedisCache) SetStocks(ctx context.Context, stocks []model.Stock) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start SetStocks", slog.String("rqID", rqID))

	pipe := r.redis.Pipeline()
	for _, stock := range stocks {
		stockJson, err := json.Marshal(stock)
		if err != nil {
			slog.Error(
				"can't marshall stock in SetStocks",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.Any("stock", stock),
			)
			return errors.New("can't marshall stock")
		}

		pipe.Set(ctx, quoteKey(stock.Symbol), stockJson, r.cfg.Cache.QuotesExpiration)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetStocks completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetStock(ctx context.Context, symbol string) (model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetStock start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, quoteKey(symbol)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Stock{}, service.ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", quoteKey(symbol)))
		return model.Stock{}, err
	}

	stock := model.Stock{}
	err = json.Unmarshal([]byte(res), &stock)
	if err != nil {
		slog.Error(
			"can't unmarshall stock in GetStock",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.Stock{}, errors.New("can't unmarshall stock")
	}

	slog.Debug("GetStock finished", slog.String("rqID", rqID))

	return stock, nil
}

func (r *RedisCache) SetPortfolioSummary(ctx context.Context, summary model.PortfolioSummary) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	summaryJson, err := json.Marshal(summary)
	if err != nil {
		slog.Error("can't marshall portfolio summary", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall portfolio summary")
	}

	err = r.redis.Set(ctx, summaryKey(summary.UserID), summaryJson, r.cfg.Cache.QuotesExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", summaryKey(summary.UserID)))
		return err
	}

	return nil
}

func (r *RedisCache) GetPortfolioSummary(ctx context.Context, userID string) (model.PortfolioSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	res, err := r.redis.Get(ctx, summaryKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.PortfolioSummary{}, service.ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", summaryKey(userID)))
		return model.PortfolioSummary{}, err
	}

	summary := model.PortfolioSummary{}
	if err = json.Unmarshal([]byte(res), &summary); err != nil {
		slog.Error("can't unmarshall portfolio summary", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.PortfolioSummary{}, errors.New("can't unmarshall portfolio summary")
	}

	return summary, nil
}
