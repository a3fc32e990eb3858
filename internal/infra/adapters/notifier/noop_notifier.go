package notifier

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs instead of delivering. Used when no bot token is configured.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &NoopNotifier{log: logger}
}

func (n *NoopNotifier) Notify(ctx context.Context, telegramID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.log.Info().Int64("tg_id", telegramID).Str("text", text).Msg("[noop-notifier] notify")
	return nil
}
