package sweeper_fx

import (
	"context"
	"os"
	"strconv"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"opstower/internal/repositories"
	"opstower/internal/services"
)

var Module = fx.Options(
	fx.Provide(provideSweeper),
	fx.Invoke(registerSweeper),
)

func provideSweeper(txns repositories.TransactionRepositoryInterface, logger *zap.Logger) *services.ExpirySweeper {
	interval := time.Minute
	if v, err := strconv.Atoi(os.Getenv("EXPIRY_SWEEP_INTERVAL_SECONDS")); err == nil && v > 0 {
		interval = time.Duration(v) * time.Second
	}
	return services.NewExpirySweeper(txns, interval, logger)
}

func registerSweeper(lc fx.Lifecycle, sweeper *services.ExpirySweeper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sweeper.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sweeper.Stop()
			return nil
		},
	})
}
