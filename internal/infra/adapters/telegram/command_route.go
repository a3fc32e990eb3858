package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-movie-finder/internal/application"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

type textHandler func(ctx context.Context, message *tgbotapi.Message) error

// commandRoutes defines the slash commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":   r.handleStartCommand,
		"search":  r.handleSearchPrompt,
		"genres":  r.handleGenres,
		"cabinet": r.handleCabinet,
		"premium": r.handlePremium,
		"help":    r.handleStartCommand,
	}
}

// menuRoutes maps every localized reply-keyboard label onto its handler, so
// a button works whatever language the keyboard was drawn in.
func (r *RealTelegramBotAdapter) menuRoutes() map[string]textHandler {
	byKey := map[string]textHandler{
		"menu_search": r.handleSearchPrompt,
		"menu_genres": r.handleGenres,
		"menu_cab":    r.handleCabinet,
		"menu_prem":   r.handlePremium,
	}
	routes := make(map[string]textHandler)
	for key, fn := range byKey {
		for _, label := range r.texts.Variants(key) {
			routes[label] = fn
		}
	}
	return routes
}

// handleStartCommand handles /start with an optional referral payload.
func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	payload := ""
	if message.Command() == "start" {
		payload = strings.TrimSpace(message.CommandArguments())
	}
	replies, err := r.facade.HandleStart(ctx, message.From.ID, displayName(message.From), payload, r.now())
	return r.sendReplies(ctx, message.Chat.ID, replies, err)
}

func (r *RealTelegramBotAdapter) handleSearchPrompt(ctx context.Context, message *tgbotapi.Message) error {
	replies, err := r.facade.SearchPrompt(ctx, message.From.ID, displayName(message.From), r.now())
	return r.sendReplies(ctx, message.Chat.ID, replies, err)
}

func (r *RealTelegramBotAdapter) handleGenres(ctx context.Context, message *tgbotapi.Message) error {
	replies, err := r.facade.HandleGenres(ctx, message.From.ID, displayName(message.From), r.now())
	return r.sendReplies(ctx, message.Chat.ID, replies, err)
}

func (r *RealTelegramBotAdapter) handleCabinet(ctx context.Context, message *tgbotapi.Message) error {
	replies, err := r.facade.HandleCabinet(ctx, message.From.ID, displayName(message.From), r.now())
	return r.sendReplies(ctx, message.Chat.ID, replies, err)
}

func (r *RealTelegramBotAdapter) handlePremium(ctx context.Context, message *tgbotapi.Message) error {
	replies, err := r.facade.HandlePremium(ctx, message.From.ID, displayName(message.From), r.now())
	return r.sendReplies(ctx, message.Chat.ID, replies, err)
}

// handleText routes plain text: language buttons, menu buttons, and
// everything else is a search.
func (r *RealTelegramBotAdapter) handleText(ctx context.Context, message *tgbotapi.Message) error {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return nil
	}
	if lang, ok := application.LanguageFromButton(text); ok {
		replies, err := r.facade.SelectLanguage(ctx, message.From.ID, displayName(message.From), lang, r.now())
		return r.sendReplies(ctx, message.Chat.ID, replies, err)
	}
	if fn, ok := r.menu[text]; ok {
		return fn(ctx, message)
	}
	replies, err := r.facade.HandleSearch(ctx, message.From.ID, displayName(message.From), text, r.now())
	return r.sendReplies(ctx, message.Chat.ID, replies, err)
}
