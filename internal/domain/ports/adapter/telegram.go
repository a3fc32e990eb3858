// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

type InlineButton struct {
	Text   string
	Data   string
	URL    string
	WebApp bool
}

// Notifier delivers a plain message to any user. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, telegramID int64, text string) error
}

type TelegramBotAdapter interface {
	Notifier
	SendMessage(ctx context.Context, telegramID int64, text string) error
	SendButtons(ctx context.Context, telegramID int64, text string, rows [][]InlineButton) error
}
