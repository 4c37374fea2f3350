package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sivasankari007/CodeAlpha-trading-platform/internal/market"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/internal/model"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/utils"
)

// Logger wraps a market subscriber with start/finish logs carrying the tick's request id.
func Logger(name string, next market.Handler) market.Handler {
	return func(ctx context.Context, stocks []model.Stock) error {
		now := time.Now()

		ctx = utils.CreateCtxWithRqID(ctx)
		rqID := utils.GetRequestIDFromCtx(ctx)

		slog.Debug(
			"start market update",
			slog.String("rqID", rqID),
			slog.String("subscriber", name),
			slog.Int("stocks", len(stocks)),
		)

		defer func() {
			slog.Debug(
				"market update finished",
				slog.String("rqID", rqID),
				slog.String("subscriber", name),
				slog.String("duration", fmt.Sprintf("%.3fs", time.Since(now).Seconds())),
			)
		}()

		return next(ctx, stocks)
	}
}
