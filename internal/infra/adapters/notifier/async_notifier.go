package notifier

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/domain/ports/adapter"
	"telegram-movie-finder/internal/infra/metrics"
	"telegram-movie-finder/internal/infra/worker"
)

var _ adapter.Notifier = (*AsyncNotifier)(nil)

// AsyncNotifier hands deliveries to the worker pool so the interaction that
// triggered them never waits on Telegram. Notify only fails when the queue
// is full.
type AsyncNotifier struct {
	inner adapter.Notifier
	pool  *worker.Pool
	kind  string
	log   *zerolog.Logger
}

func NewAsyncNotifier(inner adapter.Notifier, pool *worker.Pool, kind string, logger *zerolog.Logger) (*AsyncNotifier, error) {
	if inner == nil || pool == nil {
		return nil, errors.New("notifier: inner notifier and pool are required")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AsyncNotifier{inner: inner, pool: pool, kind: kind, log: logger}, nil
}

func (n *AsyncNotifier) Notify(_ context.Context, telegramID int64, text string) error {
	err := n.pool.Submit(func(ctx context.Context) error {
		if err := n.inner.Notify(ctx, telegramID, text); err != nil {
			metrics.IncNotification(n.kind, "failed")
			n.log.Warn().Err(err).Str("kind", n.kind).Int64("tg_id", telegramID).Msg("notification delivery failed")
			return err
		}
		metrics.IncNotification(n.kind, "sent")
		return nil
	})
	if err != nil {
		metrics.IncNotification(n.kind, "dropped")
		n.log.Warn().Err(err).Str("kind", n.kind).Int64("tg_id", telegramID).Msg("notification dropped")
	}
	return err
}
