package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/infra/metrics"
	"telegram-movie-finder/internal/usecase"
)

// PoolStatsFunc reports the database pool as total, idle and in-use connections.
type PoolStatsFunc func() (total, idle, inUse int32)

// StatsWorker periodically publishes the users-by-state and pool gauges.
// Trial transitions are never driven from here; they happen on interaction.
type StatsWorker struct {
	interval  time.Duration
	statsUC   usecase.StatsUseCase
	poolStats PoolStatsFunc
	log       *zerolog.Logger
}

func NewStatsWorker(interval time.Duration, statsUC usecase.StatsUseCase, poolStats PoolStatsFunc, logger *zerolog.Logger) *StatsWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	compLog := logger.With().Str("component", "StatsWorker").Logger()
	return &StatsWorker{
		interval:  interval,
		statsUC:   statsUC,
		poolStats: poolStats,
		log:       &compLog,
	}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting stats worker")
	// Run once on startup, then on every tick
	w.refresh(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping stats worker")
			return ctx.Err()
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *StatsWorker) refresh(ctx context.Context) {
	if err := w.statsUC.RefreshGauges(ctx); err != nil {
		w.log.Error().Err(err).Msg("refresh user gauges failed")
	}
	if w.poolStats != nil {
		metrics.SetDBPoolStats(w.poolStats())
	}
}
